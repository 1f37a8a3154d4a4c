package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/retry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

const DefaultTxAttempts = 5

const (
	sqlStateUniqueViolation      = "23505"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgRepositories struct {
	bookings *PGBookingRepository
	rooms    *PGRoomRepository
	checkIns *PGCheckInRepository
	lockKeys *PGLockKeyRepository
}

func newPGRepositories(q querier) pgRepositories {
	return pgRepositories{
		bookings: &PGBookingRepository{db: q},
		rooms:    &PGRoomRepository{db: q},
		checkIns: &PGCheckInRepository{db: q},
		lockKeys: &PGLockKeyRepository{db: q},
	}
}

func (r pgRepositories) Bookings() BookingRepository { return r.bookings }
func (r pgRepositories) Rooms() RoomRepository       { return r.rooms }
func (r pgRepositories) CheckIns() CheckInRepository { return r.checkIns }
func (r pgRepositories) LockKeys() LockKeyRepository { return r.lockKeys }

type PGStore struct {
	pgRepositories
	db         *pgxpool.Pool
	txAttempts int
}

func NewPGStore(db *pgxpool.Pool, txAttempts int) *PGStore {
	if txAttempts <= 0 {
		txAttempts = DefaultTxAttempts
	}
	return &PGStore{pgRepositories: newPGRepositories(db), db: db, txAttempts: txAttempts}
}

func (s *PGStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error {
	err := retry.Do(ctx, retry.Policy{MaxAttempts: s.txAttempts, Retryable: isRetryableTxError}, func(ctx context.Context, _ int) error {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		if err := fn(ctx, newPGRepositories(tx)); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if errors.Is(err, retry.ErrExhausted) {
		return domain.NewError(domain.CodeConflict, "concurrent update, please retry", err)
	}
	return err
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// ApplySchema creates the tables when they do not exist yet.
func ApplySchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateSerializationFailure || pgErr.Code == sqlStateDeadlockDetected
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != sqlStateUniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewError(domain.CodeNotFound, fmt.Sprintf(format, args...), err)
	}
	return err
}

var _ Store = (*PGStore)(nil)
