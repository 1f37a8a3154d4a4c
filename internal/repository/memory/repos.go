package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
)

type bookingRepo struct {
	s   *Store
	log *undoLog
}

func (r bookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.data.bookings {
		if b.ReferenceCode == booking.ReferenceCode {
			return domain.Conflict("reference code already in use")
		}
	}
	now := r.s.now()
	booking.CreatedAt, booking.UpdatedAt = now, now
	track(r.log, r.s.data, bookingsOf, booking.ID)
	r.s.data.bookings[booking.ID] = *booking
	return nil
}

func (r bookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.data.bookings[id]
	if !ok {
		return nil, domain.NotFound("booking %s not found", id)
	}
	return &b, nil
}

func (r bookingRepo) GetByReference(ctx context.Context, referenceCode string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.data.bookings {
		if b.ReferenceCode == referenceCode {
			return &b, nil
		}
	}
	return nil, domain.NotFound("booking %s not found", referenceCode)
}

func (r bookingRepo) ReferenceExists(ctx context.Context, referenceCode string) (bool, error) {
	_, err := r.GetByReference(ctx, referenceCode)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r bookingRepo) AssignRoom(ctx context.Context, bookingID string, roomID *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.data.bookings[bookingID]
	if !ok {
		return domain.NotFound("booking %s not found", bookingID)
	}
	if roomID != nil {
		id := *roomID
		roomID = &id
	}
	b.RoomID = roomID
	b.UpdatedAt = r.s.now()
	track(r.log, r.s.data, bookingsOf, bookingID)
	r.s.data.bookings[bookingID] = b
	return nil
}

func (r bookingRepo) UpdateStatus(ctx context.Context, bookingID string, from, to domain.BookingStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.data.bookings[bookingID]
	if !ok || b.Status != from {
		return domain.InvalidState("booking %s is no longer %s", bookingID, from)
	}
	b.Status = to
	b.UpdatedAt = r.s.now()
	track(r.log, r.s.data, bookingsOf, bookingID)
	r.s.data.bookings[bookingID] = b
	return nil
}

func (r bookingRepo) ListOccupying(ctx context.Context, roomIDs []string, stay domain.Stay, excludeBookingID string) ([]domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	wanted := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		wanted[id] = true
	}
	var out []domain.Booking
	for _, b := range r.s.data.bookings {
		if b.ID == excludeBookingID || !b.HasRoom() || !wanted[*b.RoomID] || !b.Status.Occupies() {
			continue
		}
		if b.Stay().Overlaps(stay) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r bookingRepo) ListUnassigned(ctx context.Context, roomTypeID string, stay domain.Stay, excludeBookingID string) ([]domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Booking
	for _, b := range r.s.data.bookings {
		if b.ID == excludeBookingID || b.HasRoom() || b.RoomTypeID != roomTypeID || !b.Status.Occupies() {
			continue
		}
		if b.Stay().Overlaps(stay) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r bookingRepo) Count(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.data.bookings), nil
}

type roomRepo struct{ s *Store }

func (r roomRepo) GetRoomType(ctx context.Context, id string) (*domain.RoomType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.data.roomTypes[id]
	if !ok {
		return nil, domain.NotFound("room type %s not found", id)
	}
	return &t, nil
}

func (r roomRepo) ListRoomTypes(ctx context.Context, minOccupancy int) ([]domain.RoomType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.RoomType, 0)
	for _, t := range r.s.data.roomTypes {
		if t.IsActive && t.MaxOccupancy >= minOccupancy {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BasePriceCents == out[j].BasePriceCents {
			return out[i].Name < out[j].Name
		}
		return out[i].BasePriceCents < out[j].BasePriceCents
	})
	return out, nil
}

func (r roomRepo) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.data.rooms[id]
	if !ok {
		return nil, domain.NotFound("room %s not found", id)
	}
	return &room, nil
}

func (r roomRepo) ListAllocatable(ctx context.Context, roomTypeID string) ([]domain.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Room
	for _, room := range r.s.data.rooms {
		if room.RoomTypeID == roomTypeID && room.Controllable() {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].RoomNumber, out[j].RoomNumber
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return out, nil
}

func (r roomRepo) CountRooms(ctx context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.data.rooms), nil
}

func (r roomRepo) ListAdditionalServices(ctx context.Context) ([]domain.AdditionalService, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.AdditionalService, 0, len(r.s.data.services))
	for _, svc := range r.s.data.services {
		if svc.IsActive {
			out = append(out, svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type checkInRepo struct {
	s   *Store
	log *undoLog
}

func (r checkInRepo) Create(ctx context.Context, info *domain.CheckInInfo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.checkIns[info.BookingID]; ok {
		return domain.Conflict("check-in already submitted")
	}
	info.CreatedAt = r.s.now()
	track(r.log, r.s.data, checkInsOf, info.BookingID)
	r.s.data.checkIns[info.BookingID] = *info
	return nil
}

func (r checkInRepo) GetByBookingID(ctx context.Context, bookingID string) (*domain.CheckInInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	info, ok := r.s.data.checkIns[bookingID]
	if !ok {
		return nil, domain.NotFound("check-in info for booking %s not found", bookingID)
	}
	return &info, nil
}

type lockKeyRepo struct {
	s   *Store
	log *undoLog
}

func (r lockKeyRepo) Create(ctx context.Context, key *domain.LockKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if key.Status == domain.LockKeyStatusActive {
		for _, k := range r.s.data.lockKeys {
			if k.BookingID == key.BookingID && k.Status == domain.LockKeyStatusActive {
				return domain.Conflict("booking already has an active lock key")
			}
		}
	}
	now := r.s.now()
	key.CreatedAt, key.UpdatedAt = now, now
	track(r.log, r.s.data, lockKeysOf, key.ID)
	r.s.data.lockKeys[key.ID] = *key
	return nil
}

func (r lockKeyRepo) GetActiveByBookingID(ctx context.Context, bookingID string) (*domain.LockKey, error) {
	keys, _ := r.ListActiveByBookingID(ctx, bookingID)
	if len(keys) == 0 {
		return nil, domain.NotFound("no active lock key for booking %s", bookingID)
	}
	return &keys[0], nil
}

func (r lockKeyRepo) ListActiveByBookingID(ctx context.Context, bookingID string) ([]domain.LockKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var keys []domain.LockKey
	for _, k := range r.s.data.lockKeys {
		if k.BookingID == bookingID && k.Status == domain.LockKeyStatusActive {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys, nil
}

func (r lockKeyRepo) MarkStatus(ctx context.Context, id string, status domain.LockKeyStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.data.lockKeys[id]
	if !ok || k.Status != domain.LockKeyStatusActive {
		return domain.InvalidState("lock key %s is not active", id)
	}
	k.Status = status
	k.UpdatedAt = r.s.now()
	track(r.log, r.s.data, lockKeysOf, id)
	r.s.data.lockKeys[id] = k
	return nil
}

func (r lockKeyRepo) ExpireBefore(ctx context.Context, deadline time.Time) ([]domain.LockKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var expired []domain.LockKey
	for id, k := range r.s.data.lockKeys {
		if k.Status == domain.LockKeyStatusActive && k.ValidTo.Before(deadline) {
			k.Status = domain.LockKeyStatusExpired
			k.UpdatedAt = r.s.now()
			track(r.log, r.s.data, lockKeysOf, id)
			r.s.data.lockKeys[id] = k
			expired = append(expired, k)
		}
	}
	sortKeys(expired)
	return expired, nil
}
