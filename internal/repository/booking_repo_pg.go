package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/jackc/pgx/v5"
)

const bookingColumns = `id, reference_code, room_type_id, room_id, status, guest_name, guest_email, guest_phone,
	check_in_date, check_out_date, base_price_cents, total_price_cents, locale, created_at, updated_at`

type PGBookingRepository struct {
	db querier
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	err := r.db.QueryRow(ctx, `INSERT INTO bookings (id, reference_code, room_type_id, room_id, status, guest_name, guest_email,
		guest_phone, check_in_date, check_out_date, base_price_cents, total_price_cents, locale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		booking.ID, booking.ReferenceCode, booking.RoomTypeID, booking.RoomID, booking.Status, booking.GuestName,
		booking.GuestEmail, booking.GuestPhone, booking.CheckInDate, booking.CheckOutDate, booking.BasePriceCents,
		booking.TotalPriceCents, booking.Locale).
		Scan(&booking.CreatedAt, &booking.UpdatedAt)
	if isUniqueViolation(err, "bookings_reference_code_key") {
		return domain.NewError(domain.CodeConflict, "reference code already in use", err)
	}
	return err
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err, "booking %s not found", id)
	}
	return b, nil
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, referenceCode string) (*domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference_code=$1`, referenceCode))
	if err != nil {
		return nil, notFound(err, "booking %s not found", referenceCode)
	}
	return b, nil
}

func (r *PGBookingRepository) ReferenceExists(ctx context.Context, referenceCode string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE reference_code=$1)`, referenceCode).Scan(&exists)
	return exists, err
}

func (r *PGBookingRepository) AssignRoom(ctx context.Context, bookingID string, roomID *string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET room_id=$1, updated_at=now() WHERE id=$2`, roomID, bookingID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.NotFound("booking %s not found", bookingID)
	}
	return nil
}

func (r *PGBookingRepository) UpdateStatus(ctx context.Context, bookingID string, from, to domain.BookingStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 AND status=$3`, to, bookingID, from)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.InvalidState("booking %s is no longer %s", bookingID, from)
	}
	return nil
}

func (r *PGBookingRepository) ListOccupying(ctx context.Context, roomIDs []string, stay domain.Stay, excludeBookingID string) ([]domain.Booking, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE room_id = ANY($1) AND status = ANY($2) AND check_in_date < $3 AND $4 < check_out_date AND id <> $5`,
		roomIDs, occupyingStatusStrings(), domain.DateOf(stay.CheckOut), domain.DateOf(stay.CheckIn), excludeBookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) ListUnassigned(ctx context.Context, roomTypeID string, stay domain.Stay, excludeBookingID string) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE room_type_id = $1 AND room_id IS NULL AND status = ANY($2) AND check_in_date < $3 AND $4 < check_out_date AND id <> $5`,
		roomTypeID, occupyingStatusStrings(), domain.DateOf(stay.CheckOut), domain.DateOf(stay.CheckIn), excludeBookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM bookings`).Scan(&n)
	return n, err
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var checkIn, checkOut time.Time
	if err := row.Scan(&b.ID, &b.ReferenceCode, &b.RoomTypeID, &b.RoomID, &b.Status, &b.GuestName, &b.GuestEmail,
		&b.GuestPhone, &checkIn, &checkOut, &b.BasePriceCents, &b.TotalPriceCents, &b.Locale, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.CheckInDate = domain.DateOf(checkIn)
	b.CheckOutDate = domain.DateOf(checkOut)
	return &b, nil
}

func occupyingStatusStrings() []string {
	statuses := domain.OccupyingStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var _ BookingRepository = (*PGBookingRepository)(nil)
