package repository

import (
	"context"

	"github.com/Domenick1991/hotelaccess/internal/domain"
)

type PGCheckInRepository struct {
	db querier
}

func (r *PGCheckInRepository) Create(ctx context.Context, info *domain.CheckInInfo) error {
	err := r.db.QueryRow(ctx, `INSERT INTO check_in_infos (id, booking_id, legal_name, document_number, document_country, extras)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		info.ID, info.BookingID, info.LegalName, info.DocumentNumber, info.DocumentCountry, info.Extras).
		Scan(&info.CreatedAt)
	if isUniqueViolation(err, "check_in_infos_booking_id_key") {
		return domain.NewError(domain.CodeConflict, "check-in already submitted", err)
	}
	return err
}

func (r *PGCheckInRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.CheckInInfo, error) {
	row := r.db.QueryRow(ctx, `SELECT id, booking_id, legal_name, document_number, document_country, extras, created_at
		FROM check_in_infos WHERE booking_id=$1`, bookingID)
	var info domain.CheckInInfo
	if err := row.Scan(&info.ID, &info.BookingID, &info.LegalName, &info.DocumentNumber, &info.DocumentCountry, &info.Extras, &info.CreatedAt); err != nil {
		return nil, notFound(err, "check-in info for booking %s not found", bookingID)
	}
	return &info, nil
}

var _ CheckInRepository = (*PGCheckInRepository)(nil)
