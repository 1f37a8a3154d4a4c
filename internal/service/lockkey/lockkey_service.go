// Package lockkey issues, revokes and expires the passcodes that open a guest's room.
package lockkey

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/lockprovider"
	"github.com/Domenick1991/hotelaccess/internal/repository"
	"github.com/Domenick1991/hotelaccess/internal/service/allocation"
	"github.com/google/uuid"
)

const (
	DefaultProviderTimeout = 10 * time.Second
	DefaultGuardTTL        = 30 * time.Second
)

type LockKeyUseCase interface {
	IssueLockKey(ctx context.Context, bookingID string) (*IssuedKey, error)
	RevokeLockKeys(ctx context.Context, bookingID string) (*RevocationReport, error)
	ExpireOldLockKeys(ctx context.Context) ([]domain.LockKey, error)
	GetActiveLockKey(ctx context.Context, bookingID string) (*domain.LockKey, error)
}

// IssuanceGuard keeps two instances from calling the provider for the same booking at once.
type IssuanceGuard interface {
	AcquireIssuanceGuard(ctx context.Context, bookingID string, ttl time.Duration) (bool, error)
	ReleaseIssuanceGuard(ctx context.Context, bookingID string) error
}

type IssuedKey struct {
	Key        domain.LockKey
	RoomNumber string
	Booking    domain.Booking
}

// ErrUnconfirmedPasscode marks a key whose passcode id on the lock was never recorded,
// so it could not be deleted there.
var ErrUnconfirmedPasscode = errors.New("passcode id on the lock is unknown")

type KeyFailure struct {
	LockKeyID string
	Err       error
}

// RevocationReport lists keys revoked locally and the ones the lock may still accept.
type RevocationReport struct {
	Revoked  []string
	Failures []KeyFailure
}

type LockKeyService struct {
	store     repository.Store
	provider  lockprovider.Provider
	guard     IssuanceGuard
	guardTTL  time.Duration
	publisher domain.Publisher
	house     domain.HouseTimes
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

type LockKeyServiceOption func(*LockKeyService)

func WithIssuanceGuard(g IssuanceGuard, ttl time.Duration) LockKeyServiceOption {
	return func(s *LockKeyService) {
		s.guard = g
		if ttl > 0 {
			s.guardTTL = ttl
		}
	}
}

func WithPublisher(p domain.Publisher) LockKeyServiceOption {
	return func(s *LockKeyService) {
		s.publisher = p
	}
}

func WithHouseTimes(h domain.HouseTimes) LockKeyServiceOption {
	return func(s *LockKeyService) {
		s.house = h
	}
}

func WithProviderTimeout(d time.Duration) LockKeyServiceOption {
	return func(s *LockKeyService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) LockKeyServiceOption {
	return func(s *LockKeyService) {
		s.now = now
	}
}

func WithLogger(l *slog.Logger) LockKeyServiceOption {
	return func(s *LockKeyService) {
		s.logger = l
	}
}

func NewLockKeyService(store repository.Store, provider lockprovider.Provider, opts ...LockKeyServiceOption) *LockKeyService {
	service := &LockKeyService{
		store:    store,
		provider: provider,
		guardTTL: DefaultGuardTTL,
		house:    domain.DefaultHouseTimes(),
		timeout:  DefaultProviderTimeout,
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// issuance is what the first transaction hands to the provider call.
type issuance struct {
	booking      domain.Booking
	room         domain.Room
	label        string
	roomAssigned bool
	// staleRoom is the room number the booking was moved off, if any.
	staleRoom string
}

func (s *LockKeyService) IssueLockKey(ctx context.Context, bookingID string) (*IssuedKey, error) {
	if s.guard != nil {
		ok, err := s.guard.AcquireIssuanceGuard(ctx, bookingID, s.guardTTL)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "issuance guard unavailable", "booking_id", bookingID, "error", err)
		case !ok:
			return nil, domain.Conflict("lock key issuance already in progress for this booking")
		default:
			defer func() {
				if err := s.guard.ReleaseIssuanceGuard(context.WithoutCancel(ctx), bookingID); err != nil {
					s.logger.WarnContext(ctx, "failed to release issuance guard", "booking_id", bookingID, "error", err)
				}
			}()
		}
	}

	var in issuance
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		in, err = s.prepare(ctx, tx, bookingID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoAvailability) {
			s.logger.WarnContext(ctx, "no room available for lock key", "booking_id", bookingID)
			s.publishFailure(ctx, bookingID, err)
		}
		return nil, err
	}
	if in.staleRoom != "" {
		event := domain.NewBookingEvent(domain.EventRoomReassigned, &in.booking, s.now())
		event.RoomNumber = in.room.RoomNumber
		event.Error = "room " + in.staleRoom + " has no usable lock"
		s.publish(ctx, event)
	}

	validFrom, validTo := s.house.ValidityWindow(in.booking.Stay())
	passcode, err := s.createPasscode(ctx, *in.room.LockID, validFrom, validTo, in.label)
	if err != nil {
		return nil, s.issuanceFailed(ctx, in, err)
	}

	key := domain.LockKey{
		ID:        uuid.NewString(),
		BookingID: in.booking.ID,
		RoomID:    in.room.ID,
		LockID:    *in.room.LockID,
		Passcode:  passcode.Code,
		ValidFrom: validFrom,
		ValidTo:   validTo,
		Status:    domain.LockKeyStatusActive,
	}
	if passcode.RemoteID != "" {
		remoteID := passcode.RemoteID
		key.RemoteID = &remoteID
	}

	var (
		booking *domain.Booking
		events  []domain.EventType
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		booking, err = tx.Bookings().GetByID(ctx, in.booking.ID)
		if err != nil {
			return err
		}
		if !booking.HasRoom() || *booking.RoomID != in.room.ID {
			return domain.Conflict("room assignment of booking %s changed during issuance", booking.ReferenceCode)
		}
		if err := tx.LockKeys().Create(ctx, &key); err != nil {
			return err
		}
		to, evs, err := domain.Transition(booking.Status, domain.ActionKeyIssued)
		if err != nil {
			return err
		}
		if err := tx.Bookings().UpdateStatus(ctx, booking.ID, booking.Status, to); err != nil {
			return err
		}
		booking.Status, events = to, evs
		return nil
	})
	if err != nil {
		s.compensate(ctx, key)
		return nil, err
	}

	s.logger.InfoContext(ctx, "lock key issued",
		"booking_id", booking.ID, "reference_code", booking.ReferenceCode,
		"room_number", in.room.RoomNumber, "lock_key_id", key.ID)

	now := s.now()
	for _, t := range events {
		event := domain.NewBookingEvent(t, booking, now)
		event.RoomNumber = in.room.RoomNumber
		if t == domain.EventLockKeyIssued {
			event.LockKeyID = key.ID
			event.Passcode = key.Passcode
			event.ValidFrom, event.ValidTo = &key.ValidFrom, &key.ValidTo
		}
		s.publish(ctx, event)
	}
	return &IssuedKey{Key: key, RoomNumber: in.room.RoomNumber, Booking: *booking}, nil
}

// prepare validates the booking and pins it to a room inside the first transaction.
func (s *LockKeyService) prepare(ctx context.Context, tx repository.Repositories, bookingID string) (issuance, error) {
	booking, err := tx.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return issuance{}, err
	}
	info, err := tx.CheckIns().GetByBookingID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return issuance{}, domain.Precondition("check-in must be completed before a lock key can be issued")
	}
	if err != nil {
		return issuance{}, err
	}

	active, err := tx.LockKeys().ListActiveByBookingID(ctx, bookingID)
	if err != nil {
		return issuance{}, err
	}
	if len(active) > 0 {
		return issuance{}, domain.Conflict("booking %s already has an active lock key", booking.ReferenceCode)
	}
	if !domain.CanTransition(booking.Status, domain.ActionKeyIssued) {
		return issuance{}, domain.InvalidState("lock key cannot be issued for a booking in status %s", booking.Status)
	}
	if !s.house.Departure(booking.CheckOutDate).After(s.now()) {
		return issuance{}, domain.InvalidState("stay of booking %s has already ended", booking.ReferenceCode)
	}

	in := issuance{booking: *booking, label: info.LegalName}
	if booking.HasRoom() {
		room, err := tx.Rooms().GetRoom(ctx, *booking.RoomID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			in.staleRoom = *booking.RoomID
		case err != nil:
			return issuance{}, err
		case !room.Controllable():
			in.staleRoom = room.RoomNumber
		default:
			in.room = *room
			return in, nil
		}
		s.logger.WarnContext(ctx, "assigned room can no longer be opened, reallocating",
			"booking_id", booking.ID, "room", in.staleRoom)
	}

	room, err := allocation.Assign(ctx, tx, booking, booking.RoomTypeID)
	if err != nil {
		return issuance{}, err
	}
	in.room, in.roomAssigned = *room, true
	in.booking.RoomID = booking.RoomID
	return in, nil
}

// createPasscode makes one bounded provider call. A timed-out call is followed by a
// lookup instead of a second create, so a passcode that did reach the lock is adopted.
func (s *LockKeyService) createPasscode(ctx context.Context, lockID string, from, to time.Time, label string) (lockprovider.Passcode, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	passcode, err := s.provider.CreatePasscode(callCtx, lockID, from, to, label)
	cancel()
	if err == nil || !lockprovider.IsAmbiguous(err) {
		return passcode, err
	}

	s.logger.WarnContext(ctx, "passcode creation outcome unknown, reconciling", "lock_id", lockID, "error", err)
	findCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	found, findErr := s.provider.FindPasscode(findCtx, lockID, label, from, to)
	if findErr != nil {
		s.logger.WarnContext(ctx, "passcode reconciliation failed", "lock_id", lockID, "error", findErr)
		return lockprovider.Passcode{}, err
	}
	if found == nil {
		return lockprovider.Passcode{}, err
	}
	s.logger.InfoContext(ctx, "adopted passcode found after ambiguous create", "lock_id", lockID)
	return *found, nil
}

func (s *LockKeyService) issuanceFailed(ctx context.Context, in issuance, cause error) error {
	s.logger.ErrorContext(ctx, "lock key issuance failed",
		"booking_id", in.booking.ID, "reference_code", in.booking.ReferenceCode,
		"room_number", in.room.RoomNumber, "kind", lockprovider.KindOf(cause).String(), "error", cause)

	// A misconfigured lock will keep failing, so the room goes back to the pool.
	if lockprovider.IsConfig(cause) && in.roomAssigned {
		err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
			return tx.Bookings().AssignRoom(ctx, in.booking.ID, nil)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to release room assignment", "booking_id", in.booking.ID, "error", err)
		}
	}

	err := domain.Provider("could not create a passcode on the room lock", cause)
	s.publishFailure(ctx, in.booking.ID, err)
	return err
}

// compensate removes a passcode the provider created when the local write did not commit.
func (s *LockKeyService) compensate(ctx context.Context, key domain.LockKey) {
	if key.RemoteID == nil {
		s.logger.ErrorContext(ctx, "passcode created on lock without remote id, manual cleanup needed",
			"booking_id", key.BookingID, "lock_id", key.LockID)
		return
	}
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if err := s.provider.DeletePasscode(callCtx, key.LockID, *key.RemoteID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete orphaned passcode",
			"booking_id", key.BookingID, "lock_id", key.LockID, "remote_id", *key.RemoteID, "error", err)
	}
}

func (s *LockKeyService) RevokeLockKeys(ctx context.Context, bookingID string) (*RevocationReport, error) {
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	keys, err := s.store.LockKeys().ListActiveByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	report := &RevocationReport{}
	var storeErrs []error
	for _, key := range keys {
		if err := s.deleteFromLock(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "passcode not removed from lock, revoking locally",
				"booking_id", bookingID, "lock_key_id", key.ID, "lock_id", key.LockID, "error", err)
			report.Failures = append(report.Failures, KeyFailure{LockKeyID: key.ID, Err: err})
			event := domain.NewBookingEvent(domain.EventLockKeyRevokeFailed, booking, s.now())
			event.LockKeyID = key.ID
			event.Error = lockprovider.KindOf(err).String()
			if errors.Is(err, ErrUnconfirmedPasscode) {
				event.Error = "unconfirmed"
			}
			s.publish(ctx, event)
		}

		if err := s.store.LockKeys().MarkStatus(ctx, key.ID, domain.LockKeyStatusRevoked); err != nil {
			if errors.Is(err, domain.ErrInvalidState) {
				// expired or revoked by someone else in the meantime
				continue
			}
			storeErrs = append(storeErrs, err)
			continue
		}
		report.Revoked = append(report.Revoked, key.ID)

		event := domain.NewBookingEvent(domain.EventLockKeyRevoked, booking, s.now())
		event.LockKeyID = key.ID
		s.publish(ctx, event)
	}

	if len(keys) > 0 {
		s.logger.InfoContext(ctx, "lock keys revoked",
			"booking_id", bookingID, "revoked", len(report.Revoked), "provider_failures", len(report.Failures))
	}
	if err := errors.Join(storeErrs...); err != nil {
		return report, err
	}
	return report, nil
}

func (s *LockKeyService) deleteFromLock(ctx context.Context, key domain.LockKey) error {
	if key.RemoteID == nil {
		return ErrUnconfirmedPasscode
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.DeletePasscode(callCtx, key.LockID, *key.RemoteID)
}

func (s *LockKeyService) ExpireOldLockKeys(ctx context.Context) ([]domain.LockKey, error) {
	now := s.now()
	expired, err := s.store.LockKeys().ExpireBefore(ctx, now)
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 {
		s.logger.InfoContext(ctx, "lock keys expired", "count", len(expired))
		s.publish(ctx, domain.Event{Type: domain.EventLockKeysExpired, Count: len(expired), OccurredAt: now})
	}
	return expired, nil
}

func (s *LockKeyService) GetActiveLockKey(ctx context.Context, bookingID string) (*domain.LockKey, error) {
	return s.store.LockKeys().GetActiveByBookingID(ctx, bookingID)
}

func (s *LockKeyService) publishFailure(ctx context.Context, bookingID string, cause error) {
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return
	}
	event := domain.NewBookingEvent(domain.EventLockKeyIssuanceFailed, booking, s.now())
	event.Error = string(domain.CodeOf(cause))
	s.publish(ctx, event)
}

func (s *LockKeyService) publish(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"type", event.Type, "booking_id", event.BookingID, "error", err)
	}
}

var _ LockKeyUseCase = (*LockKeyService)(nil)
