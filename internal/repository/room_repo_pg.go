package repository

import (
	"context"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/jackc/pgx/v5"
)

const roomTypeColumns = `id, name, description, base_price_cents, max_occupancy, is_active, created_at, updated_at`

const roomColumns = `id, room_number, room_type_id, is_active, lock_id, created_at, updated_at`

type PGRoomRepository struct {
	db querier
}

func (r *PGRoomRepository) GetRoomType(ctx context.Context, id string) (*domain.RoomType, error) {
	row := r.db.QueryRow(ctx, `SELECT `+roomTypeColumns+` FROM room_types WHERE id=$1`, id)
	var t domain.RoomType
	if err := row.Scan(&t.ID, &t.Name, &t.Description, &t.BasePriceCents, &t.MaxOccupancy, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, notFound(err, "room type %s not found", id)
	}
	return &t, nil
}

func (r *PGRoomRepository) ListRoomTypes(ctx context.Context, minOccupancy int) ([]domain.RoomType, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roomTypeColumns+` FROM room_types
		WHERE is_active AND max_occupancy >= $1 ORDER BY base_price_cents, name`, minOccupancy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]domain.RoomType, 0)
	for rows.Next() {
		var t domain.RoomType
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.BasePriceCents, &t.MaxOccupancy, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

func (r *PGRoomRepository) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	room, err := scanRoom(r.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, id))
	if err != nil {
		return nil, notFound(err, "room %s not found", id)
	}
	return room, nil
}

func (r *PGRoomRepository) ListAllocatable(ctx context.Context, roomTypeID string) ([]domain.Room, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roomColumns+` FROM rooms
		WHERE room_type_id=$1 AND is_active AND lock_id IS NOT NULL AND lock_id <> ''
		ORDER BY length(room_number), room_number`, roomTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

func (r *PGRoomRepository) CountRooms(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM rooms`).Scan(&n)
	return n, err
}

func (r *PGRoomRepository) ListAdditionalServices(ctx context.Context) ([]domain.AdditionalService, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, description, unit, price_cents, is_active, created_at
		FROM additional_services WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make([]domain.AdditionalService, 0)
	for rows.Next() {
		var s domain.AdditionalService
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Description, &s.Unit, &s.PriceCents, &s.IsActive, &s.CreatedAt); err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var room domain.Room
	if err := row.Scan(&room.ID, &room.RoomNumber, &room.RoomTypeID, &room.IsActive, &room.LockID, &room.CreatedAt, &room.UpdatedAt); err != nil {
		return nil, err
	}
	return &room, nil
}

var _ RoomRepository = (*PGRoomRepository)(nil)
