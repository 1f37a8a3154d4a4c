// Package memory is an in-process Store. Transactions are serialized and roll back
// by undoing their own writes, so autocommit writes made meanwhile survive.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/repository"
)

type state struct {
	roomTypes map[string]domain.RoomType
	rooms     map[string]domain.Room
	services  map[string]domain.AdditionalService
	bookings  map[string]domain.Booking
	checkIns  map[string]domain.CheckInInfo
	lockKeys  map[string]domain.LockKey
}

func newState() *state {
	return &state{
		roomTypes: map[string]domain.RoomType{},
		rooms:     map[string]domain.Room{},
		services:  map[string]domain.AdditionalService{},
		bookings:  map[string]domain.Booking{},
		checkIns:  map[string]domain.CheckInInfo{},
		lockKeys:  map[string]domain.LockKey{},
	}
}

// undoLog records how to restore each record a transaction touched.
type undoLog struct {
	ops []func(*state)
}

// track saves the current value of key in the map pick selects. A nil log is autocommit.
func track[V any](u *undoLog, d *state, pick func(*state) map[string]V, key string) {
	if u == nil {
		return
	}
	prev, existed := pick(d)[key]
	u.ops = append(u.ops, func(d *state) {
		if existed {
			pick(d)[key] = prev
		} else {
			delete(pick(d), key)
		}
	})
}

func (u *undoLog) rollback(d *state) {
	for i := len(u.ops) - 1; i >= 0; i-- {
		u.ops[i](d)
	}
}

func bookingsOf(d *state) map[string]domain.Booking     { return d.bookings }
func checkInsOf(d *state) map[string]domain.CheckInInfo { return d.checkIns }
func lockKeysOf(d *state) map[string]domain.LockKey     { return d.lockKeys }

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

func (s *Store) Bookings() repository.BookingRepository { return bookingRepo{s: s} }
func (s *Store) Rooms() repository.RoomRepository       { return roomRepo{s} }
func (s *Store) CheckIns() repository.CheckInRepository { return checkInRepo{s: s} }
func (s *Store) LockKeys() repository.LockKeyRepository { return lockKeyRepo{s: s} }

// txRepos are the repositories handed to a transaction; their writes go to log.
type txRepos struct {
	s   *Store
	log *undoLog
}

func (t txRepos) Bookings() repository.BookingRepository { return bookingRepo{s: t.s, log: t.log} }
func (t txRepos) Rooms() repository.RoomRepository       { return roomRepo{t.s} }
func (t txRepos) CheckIns() repository.CheckInRepository { return checkInRepo{s: t.s, log: t.log} }
func (t txRepos) LockKeys() repository.LockKeyRepository { return lockKeyRepo{s: t.s, log: t.log} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	log := &undoLog{}
	if err := fn(ctx, txRepos{s: s, log: log}); err != nil {
		s.mu.Lock()
		log.rollback(s.data)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// AddRoomType, AddRoom and AddService seed inventory, which the core only reads.
func (s *Store) AddRoomType(t domain.RoomType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.roomTypes[t.ID] = t
}

func (s *Store) AddRoom(r domain.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.rooms[r.ID] = r
}

func (s *Store) AddService(svc domain.AdditionalService) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.services[svc.ID] = svc
}

// AddLockKey stores a key as given, skipping the one-active-key check, the way
// records imported from an older system arrive.
func (s *Store) AddLockKey(k domain.LockKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.lockKeys[k.ID] = k
}

// SetBookingStatus overwrites a status without the transition table, as an
// administrator editing the record would.
func (s *Store) SetBookingStatus(id string, status domain.BookingStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.data.bookings[id]; ok {
		b.Status = status
		s.data.bookings[id] = b
	}
}

// LockKeysOf returns every key of a booking regardless of status, oldest first.
func (s *Store) LockKeysOf(bookingID string) []domain.LockKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []domain.LockKey
	for _, k := range s.data.lockKeys {
		if k.BookingID == bookingID {
			keys = append(keys, k)
		}
	}
	sortKeys(keys)
	return keys
}

// AllBookings returns a copy of every stored booking.
func (s *Store) AllBookings() []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Booking, 0, len(s.data.bookings))
	for _, b := range s.data.bookings {
		out = append(out, b)
	}
	return out
}

func sortKeys(keys []domain.LockKey) {
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].CreatedAt.Equal(keys[j].CreatedAt) {
			return keys[i].ID < keys[j].ID
		}
		return keys[i].CreatedAt.Before(keys[j].CreatedAt)
	})
}

var _ repository.Store = (*Store)(nil)
