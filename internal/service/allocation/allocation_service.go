// Package allocation picks a free physical room of a room type for a stay.
package allocation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/repository"
)

type AllocationUseCase interface {
	AllocateRoom(ctx context.Context, bookingID, roomTypeID string) (*domain.Room, error)
}

type AllocationService struct {
	store  repository.Store
	logger *slog.Logger
}

func NewAllocationService(store repository.Store, logger *slog.Logger) *AllocationService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AllocationService{store: store, logger: logger}
}

// AllocateRoom assigns a free room of roomTypeID to the booking in its own transaction.
// A booking that already holds a usable room of that type keeps it. A booking whose
// passcode is still active cannot move until the passcode is revoked.
func (s *AllocationService) AllocateRoom(ctx context.Context, bookingID, roomTypeID string) (*domain.Room, error) {
	var room *domain.Room
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		booking, err := tx.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status.IsTerminal() {
			return domain.InvalidState("booking %s is %s", booking.ReferenceCode, booking.Status)
		}
		if booking.HasRoom() {
			current, err := tx.Rooms().GetRoom(ctx, *booking.RoomID)
			if err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if current != nil && current.RoomTypeID == roomTypeID && current.Controllable() {
				room = current
				return nil
			}
			active, err := tx.LockKeys().ListActiveByBookingID(ctx, booking.ID)
			if err != nil {
				return err
			}
			if len(active) > 0 {
				return domain.Conflict("booking %s has an active lock key, revoke it before moving rooms", booking.ReferenceCode)
			}
		}
		room, err = Assign(ctx, tx, booking, roomTypeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "room allocated", "booking_id", bookingID, "room_number", room.RoomNumber)
	return room, nil
}

// Assign selects a room and persists it on the booking. It must run inside the
// caller's transaction; the check and the write commit together.
func Assign(ctx context.Context, tx repository.Repositories, booking *domain.Booking, roomTypeID string) (*domain.Room, error) {
	room, err := Select(ctx, tx, roomTypeID, booking.Stay(), booking.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Bookings().AssignRoom(ctx, booking.ID, &room.ID); err != nil {
		return nil, err
	}
	booking.RoomID = &room.ID
	return room, nil
}

// Select returns the first eligible room of the type for stay without writing anything.
func Select(ctx context.Context, repos repository.Repositories, roomTypeID string, stay domain.Stay, excludeBookingID string) (*domain.Room, error) {
	free, err := FreeRooms(ctx, repos, roomTypeID, stay, excludeBookingID)
	if err != nil {
		return nil, err
	}
	if len(free) == 0 {
		return nil, domain.NoAvailability("no rooms available for the selected dates, please contact staff")
	}
	return &free[0], nil
}

// FreeRooms lists the controllable rooms of the type with no overlapping occupying
// booking, in allocation order.
func FreeRooms(ctx context.Context, repos repository.Repositories, roomTypeID string, stay domain.Stay, excludeBookingID string) ([]domain.Room, error) {
	rooms, err := repos.Rooms().ListAllocatable(ctx, roomTypeID)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	occupying, err := repos.Bookings().ListOccupying(ctx, ids, stay, excludeBookingID)
	if err != nil {
		return nil, err
	}
	return Eligible(rooms, occupying, stay), nil
}

// Capacity returns how many more stays of the type fit every night of stay: the
// allocatable rooms free that night minus the bookings still waiting for a room.
func Capacity(ctx context.Context, repos repository.Repositories, roomTypeID string, stay domain.Stay, excludeBookingID string) (int, error) {
	rooms, err := repos.Rooms().ListAllocatable(ctx, roomTypeID)
	if err != nil || len(rooms) == 0 {
		return 0, err
	}
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	assigned, err := repos.Bookings().ListOccupying(ctx, ids, stay, excludeBookingID)
	if err != nil {
		return 0, err
	}
	waiting, err := repos.Bookings().ListUnassigned(ctx, roomTypeID, stay, excludeBookingID)
	if err != nil {
		return 0, err
	}

	capacity := len(rooms)
	last := domain.DateOf(stay.CheckOut)
	for night := domain.DateOf(stay.CheckIn); night.Before(last); night = night.AddDate(0, 0, 1) {
		one := domain.Stay{CheckIn: night, CheckOut: night.AddDate(0, 0, 1)}
		free := len(Eligible(rooms, assigned, one))
		for _, b := range waiting {
			if b.Stay().Overlaps(one) {
				free--
			}
		}
		capacity = min(capacity, free)
	}
	return max(capacity, 0), nil
}

// Eligible filters rooms down to those none of the occupying bookings overlaps,
// keeping the input order.
func Eligible(rooms []domain.Room, bookings []domain.Booking, stay domain.Stay) []domain.Room {
	busy := make(map[string]bool, len(bookings))
	for _, b := range bookings {
		if b.HasRoom() && b.Status.Occupies() && b.Stay().Overlaps(stay) {
			busy[*b.RoomID] = true
		}
	}
	out := make([]domain.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.Controllable() && !busy[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

var _ AllocationUseCase = (*AllocationService)(nil)
