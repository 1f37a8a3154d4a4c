package rooms

import (
	"context"
	"log/slog"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/repository"
	"github.com/Domenick1991/hotelaccess/internal/service/allocation"
)

type RoomUseCase interface {
	ListAvailableRoomTypes(ctx context.Context, checkIn, checkOut time.Time, guests int) ([]Availability, error)
	GetRoomType(ctx context.Context, id string) (*domain.RoomType, error)
	ListAdditionalServices(ctx context.Context) ([]domain.AdditionalService, error)
}

type RoomTypeCache interface {
	GetRoomTypes(ctx context.Context, minOccupancy int) ([]domain.RoomType, error)
	SetRoomTypes(ctx context.Context, minOccupancy int, types []domain.RoomType) error
}

// Availability is a room type with the number of rooms still free for a stay.
// Bookings that have not been given a room yet count against it.
type Availability struct {
	RoomType   domain.RoomType
	FreeRooms  int
	Nights     int
	TotalPrice int64
}

type RoomService struct {
	store  repository.Store
	cache  RoomTypeCache
	house  domain.HouseTimes
	now    func() time.Time
	logger *slog.Logger
}

func NewRoomService(store repository.Store, cache RoomTypeCache, house domain.HouseTimes, logger *slog.Logger) *RoomService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RoomService{store: store, cache: cache, house: house, now: time.Now, logger: logger}
}

// ListAvailableRoomTypes returns the active types that fit guests, cheapest first.
// Types with no free room are kept with FreeRooms set to zero.
func (s *RoomService) ListAvailableRoomTypes(ctx context.Context, checkIn, checkOut time.Time, guests int) ([]Availability, error) {
	if guests < 1 {
		return nil, domain.Validation("number of guests must be at least 1")
	}
	stay := domain.Stay{CheckIn: domain.DateOf(checkIn), CheckOut: domain.DateOf(checkOut)}
	if !stay.CheckOut.After(stay.CheckIn) {
		return nil, domain.Validation("check-out date must be after check-in date")
	}
	if stay.CheckIn.Before(s.house.Today(s.now())) {
		return nil, domain.Validation("check-in date cannot be in the past")
	}

	types, err := s.roomTypes(ctx, guests)
	if err != nil {
		return nil, err
	}

	nights := domain.Nights(stay.CheckIn, stay.CheckOut)
	out := make([]Availability, 0, len(types))
	for _, t := range types {
		free, err := allocation.Capacity(ctx, s.store, t.ID, stay, "")
		if err != nil {
			return nil, err
		}
		out = append(out, Availability{
			RoomType:   t,
			FreeRooms:  free,
			Nights:     nights,
			TotalPrice: domain.TotalPrice(t.BasePriceCents, nights),
		})
	}
	return out, nil
}

func (s *RoomService) GetRoomType(ctx context.Context, id string) (*domain.RoomType, error) {
	t, err := s.store.Rooms().GetRoomType(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, domain.NotFound("room type %s not found", id)
	}
	return t, nil
}

// ListAdditionalServices returns the add-ons a guest can pick at check-in.
func (s *RoomService) ListAdditionalServices(ctx context.Context) ([]domain.AdditionalService, error) {
	return s.store.Rooms().ListAdditionalServices(ctx)
}

func (s *RoomService) roomTypes(ctx context.Context, guests int) ([]domain.RoomType, error) {
	if s.cache != nil {
		cached, err := s.cache.GetRoomTypes(ctx, guests)
		if err != nil {
			s.logger.WarnContext(ctx, "room type cache read failed", "guests", guests, "error", err)
		}
		if err == nil && cached != nil {
			return cached, nil
		}
	}

	types, err := s.store.Rooms().ListRoomTypes(ctx, guests)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetRoomTypes(ctx, guests, types); err != nil {
			s.logger.WarnContext(ctx, "room type cache write failed", "guests", guests, "error", err)
		}
	}
	return types, nil
}

var _ RoomUseCase = (*RoomService)(nil)
