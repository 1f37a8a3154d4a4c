package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	GetByReference(ctx context.Context, referenceCode string) (*domain.Booking, error)
	ReferenceExists(ctx context.Context, referenceCode string) (bool, error)
	// AssignRoom sets the room of a booking; a nil roomID clears the assignment.
	AssignRoom(ctx context.Context, bookingID string, roomID *string) error
	// UpdateStatus moves a booking from one status to another and fails with an
	// InvalidState error when the stored status is no longer from.
	UpdateStatus(ctx context.Context, bookingID string, from, to domain.BookingStatus) error
	// ListOccupying returns bookings in an occupying status assigned to one of roomIDs
	// whose stay overlaps stay, excluding excludeBookingID.
	ListOccupying(ctx context.Context, roomIDs []string, stay domain.Stay, excludeBookingID string) ([]domain.Booking, error)
	// ListUnassigned returns bookings of the room type in an occupying status that hold
	// no room yet and whose stay overlaps stay, excluding excludeBookingID.
	ListUnassigned(ctx context.Context, roomTypeID string, stay domain.Stay, excludeBookingID string) ([]domain.Booking, error)
	Count(ctx context.Context) (int, error)
}

type RoomRepository interface {
	GetRoomType(ctx context.Context, id string) (*domain.RoomType, error)
	ListRoomTypes(ctx context.Context, minOccupancy int) ([]domain.RoomType, error)
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
	// ListAllocatable returns active rooms of the type that have a lock, ordered by room number.
	ListAllocatable(ctx context.Context, roomTypeID string) ([]domain.Room, error)
	CountRooms(ctx context.Context) (int, error)
	// ListAdditionalServices returns the active add-on services ordered by code.
	ListAdditionalServices(ctx context.Context) ([]domain.AdditionalService, error)
}

type CheckInRepository interface {
	Create(ctx context.Context, info *domain.CheckInInfo) error
	GetByBookingID(ctx context.Context, bookingID string) (*domain.CheckInInfo, error)
}

type LockKeyRepository interface {
	// Create fails with a Conflict error when the booking already has an active key.
	Create(ctx context.Context, key *domain.LockKey) error
	GetActiveByBookingID(ctx context.Context, bookingID string) (*domain.LockKey, error)
	ListActiveByBookingID(ctx context.Context, bookingID string) ([]domain.LockKey, error)
	// MarkStatus moves an active key to status. Keys that left ACTIVE are never touched.
	MarkStatus(ctx context.Context, id string, status domain.LockKeyStatus) error
	// ExpireBefore marks every active key whose window closed before deadline as expired.
	ExpireBefore(ctx context.Context, deadline time.Time) ([]domain.LockKey, error)
}

type Repositories interface {
	Bookings() BookingRepository
	Rooms() RoomRepository
	CheckIns() CheckInRepository
	LockKeys() LockKeyRepository
}

// Store is the transactional boundary. Reads and writes outside WithinTx run in
// autocommit mode.
type Store interface {
	Repositories
	// WithinTx runs fn in a serializable transaction, re-running it on serialization
	// conflicts. Running out of attempts yields a Conflict error.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
	Ping(ctx context.Context) error
}
