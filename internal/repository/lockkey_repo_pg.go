package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/jackc/pgx/v5"
)

const lockKeyColumns = `id, booking_id, room_id, lock_id, passcode, valid_from, valid_to, status, remote_id, created_at, updated_at`

type PGLockKeyRepository struct {
	db querier
}

func (r *PGLockKeyRepository) Create(ctx context.Context, key *domain.LockKey) error {
	err := r.db.QueryRow(ctx, `INSERT INTO lock_keys (id, booking_id, room_id, lock_id, passcode, valid_from, valid_to, status, remote_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING created_at, updated_at`,
		key.ID, key.BookingID, key.RoomID, key.LockID, key.Passcode, key.ValidFrom, key.ValidTo, key.Status, key.RemoteID).
		Scan(&key.CreatedAt, &key.UpdatedAt)
	if isUniqueViolation(err, "lock_keys_one_active_per_booking") {
		return domain.NewError(domain.CodeConflict, "booking already has an active lock key", err)
	}
	return err
}

func (r *PGLockKeyRepository) GetActiveByBookingID(ctx context.Context, bookingID string) (*domain.LockKey, error) {
	key, err := scanLockKey(r.db.QueryRow(ctx, `SELECT `+lockKeyColumns+` FROM lock_keys WHERE booking_id=$1 AND status=$2`,
		bookingID, domain.LockKeyStatusActive))
	if err != nil {
		return nil, notFound(err, "no active lock key for booking %s", bookingID)
	}
	return key, nil
}

func (r *PGLockKeyRepository) ListActiveByBookingID(ctx context.Context, bookingID string) ([]domain.LockKey, error) {
	return r.list(ctx, `SELECT `+lockKeyColumns+` FROM lock_keys WHERE booking_id=$1 AND status=$2 ORDER BY created_at`,
		bookingID, domain.LockKeyStatusActive)
}

func (r *PGLockKeyRepository) MarkStatus(ctx context.Context, id string, status domain.LockKeyStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE lock_keys SET status=$1, updated_at=now() WHERE id=$2 AND status=$3`,
		status, id, domain.LockKeyStatusActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.InvalidState("lock key %s is not active", id)
	}
	return nil
}

func (r *PGLockKeyRepository) ExpireBefore(ctx context.Context, deadline time.Time) ([]domain.LockKey, error) {
	return r.list(ctx, `UPDATE lock_keys SET status=$1, updated_at=now() WHERE status=$2 AND valid_to < $3 RETURNING `+lockKeyColumns,
		domain.LockKeyStatusExpired, domain.LockKeyStatusActive, deadline)
}

func (r *PGLockKeyRepository) list(ctx context.Context, sql string, args ...any) ([]domain.LockKey, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.LockKey
	for rows.Next() {
		key, err := scanLockKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, *key)
	}
	return keys, rows.Err()
}

func scanLockKey(row pgx.Row) (*domain.LockKey, error) {
	var k domain.LockKey
	if err := row.Scan(&k.ID, &k.BookingID, &k.RoomID, &k.LockID, &k.Passcode, &k.ValidFrom, &k.ValidTo, &k.Status,
		&k.RemoteID, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	return &k, nil
}

var _ LockKeyRepository = (*PGLockKeyRepository)(nil)
