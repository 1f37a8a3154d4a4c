// Package guestaccess mints the magic-link tokens that scope a guest to one booking
// and serves the portal actions behind them.
package guestaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/lockprovider"
	"github.com/Domenick1991/hotelaccess/internal/repository"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "hotelaccess"

// ErrInvalidToken is returned by portal actions presented with a token VerifyToken rejects.
var ErrInvalidToken = errors.New("invalid or expired guest token")

type GuestAccessUseCase interface {
	IssueToken(ctx context.Context, bookingID string) (*IssuedToken, error)
	VerifyToken(ctx context.Context, token string) (*Session, bool)
	MagicLink(token string) string
	GetPortal(ctx context.Context, token string) (*Portal, error)
	UnlockNow(ctx context.Context, token string) error
	ResendCredential(ctx context.Context, token string) (string, error)
}

type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	MagicLink string
}

// Session is what a verified token grants: one booking, as it is now.
type Session struct {
	Booking   domain.Booking
	Room      domain.Room
	ExpiresAt time.Time
}

type Portal struct {
	ReferenceCode string
	GuestName     string
	RoomNumber    string
	CheckInDate   time.Time
	CheckOutDate  time.Time
	Key           *domain.LockKey
}

// ActionError is the guest-facing failure of a portal action. Message is generic;
// Hint is set only when staff have something to fix.
type ActionError struct {
	Message string
	Hint    string
}

func (e *ActionError) Error() string { return e.Message }

func (e *ActionError) Unwrap() error { return domain.ErrProvider }

type claims struct {
	BookingID  string `json:"bid"`
	GuestName  string `json:"name"`
	GuestEmail string `json:"email"`
	RoomNumber string `json:"room"`
	jwt.RegisteredClaims
}

type GuestAccessService struct {
	store      repository.Store
	provider   lockprovider.Provider
	secret     []byte
	portalBase string
	publisher  domain.Publisher
	house      domain.HouseTimes
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

type GuestAccessServiceOption func(*GuestAccessService)

func WithPortalBaseURL(base string) GuestAccessServiceOption {
	return func(s *GuestAccessService) {
		s.portalBase = strings.TrimRight(base, "/")
	}
}

func WithPublisher(p domain.Publisher) GuestAccessServiceOption {
	return func(s *GuestAccessService) {
		s.publisher = p
	}
}

func WithHouseTimes(h domain.HouseTimes) GuestAccessServiceOption {
	return func(s *GuestAccessService) {
		s.house = h
	}
}

func WithProviderTimeout(d time.Duration) GuestAccessServiceOption {
	return func(s *GuestAccessService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithClock(now func() time.Time) GuestAccessServiceOption {
	return func(s *GuestAccessService) {
		s.now = now
	}
}

func WithLogger(l *slog.Logger) GuestAccessServiceOption {
	return func(s *GuestAccessService) {
		s.logger = l
	}
}

func NewGuestAccessService(store repository.Store, provider lockprovider.Provider, secret string, opts ...GuestAccessServiceOption) (*GuestAccessService, error) {
	if len(secret) < 16 {
		return nil, errors.New("guest token secret must be at least 16 bytes")
	}
	service := &GuestAccessService{
		store:    store,
		provider: provider,
		secret:   []byte(secret),
		house:    domain.DefaultHouseTimes(),
		timeout:  10 * time.Second,
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

func (s *GuestAccessService) IssueToken(ctx context.Context, bookingID string) (*IssuedToken, error) {
	booking, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusCheckedIn {
		return nil, domain.InvalidState("guest access requires a checked-in booking, got %s", booking.Status)
	}
	if !booking.HasRoom() {
		return nil, domain.Precondition("booking %s has no room assigned", booking.ReferenceCode)
	}
	room, err := s.store.Rooms().GetRoom(ctx, *booking.RoomID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := s.house.Departure(booking.CheckOutDate)
	if !expiresAt.After(now) {
		return nil, domain.InvalidState("stay of booking %s has already ended", booking.ReferenceCode)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		BookingID:  booking.ID,
		GuestName:  booking.GuestName,
		GuestEmail: booking.GuestEmail,
		RoomNumber: room.RoomNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   booking.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign guest token: %w", err)
	}
	return &IssuedToken{Token: signed, ExpiresAt: expiresAt, MagicLink: s.MagicLink(signed)}, nil
}

// VerifyToken never fails with an error: any doubt about the token, or about the
// booking it points at, yields (nil, false).
func (s *GuestAccessService) VerifyToken(ctx context.Context, token string) (*Session, bool) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || c.BookingID == "" || c.Subject != c.BookingID {
		return nil, false
	}

	booking, err := s.store.Bookings().GetByID(ctx, c.BookingID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "guest token check could not load booking", "booking_id", c.BookingID, "error", err)
		}
		return nil, false
	}
	if booking.Status != domain.BookingStatusCheckedIn || !booking.HasRoom() {
		return nil, false
	}
	departure := s.house.Departure(booking.CheckOutDate)
	if !s.now().Before(departure) {
		return nil, false
	}
	room, err := s.store.Rooms().GetRoom(ctx, *booking.RoomID)
	if err != nil {
		return nil, false
	}
	if room.RoomNumber != c.RoomNumber {
		s.logger.InfoContext(ctx, "guest token issued for another room",
			"booking_id", booking.ID, "token_room", c.RoomNumber, "room", room.RoomNumber)
		return nil, false
	}
	return &Session{Booking: *booking, Room: *room, ExpiresAt: c.ExpiresAt.Time}, true
}

func (s *GuestAccessService) MagicLink(token string) string {
	return s.portalBase + "/guest-portal?token=" + url.QueryEscape(token)
}

func (s *GuestAccessService) GetPortal(ctx context.Context, token string) (*Portal, error) {
	session, ok := s.VerifyToken(ctx, token)
	if !ok {
		return nil, ErrInvalidToken
	}
	portal := &Portal{
		ReferenceCode: session.Booking.ReferenceCode,
		GuestName:     session.Booking.GuestName,
		RoomNumber:    session.Room.RoomNumber,
		CheckInDate:   session.Booking.CheckInDate,
		CheckOutDate:  session.Booking.CheckOutDate,
	}
	key, err := s.store.LockKeys().GetActiveByBookingID(ctx, session.Booking.ID)
	switch {
	case err == nil:
		portal.Key = key
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return portal, nil
}

func (s *GuestAccessService) UnlockNow(ctx context.Context, token string) error {
	session, ok := s.VerifyToken(ctx, token)
	if !ok {
		return ErrInvalidToken
	}
	if !session.Room.Controllable() {
		return s.actionFailed(ctx, session, "unlock", "Unlock failed. Please contact reception.",
			&lockprovider.Error{Op: "unlock", Kind: lockprovider.KindConfig, Message: "room has no lock"})
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.provider.RemoteUnlock(callCtx, *session.Room.LockID); err != nil {
		return s.actionFailed(ctx, session, "unlock", "Unlock failed. Please try again or contact reception.", err)
	}

	s.logger.InfoContext(ctx, "remote unlock", "booking_id", session.Booking.ID, "room_number", session.Room.RoomNumber)
	event := domain.NewBookingEvent(domain.EventRemoteUnlock, &session.Booking, s.now())
	event.RoomNumber = session.Room.RoomNumber
	s.publish(ctx, event)
	return nil
}

// ResendCredential shares the active key's window with the guest's lock app account
// and returns the provider's credential id.
func (s *GuestAccessService) ResendCredential(ctx context.Context, token string) (string, error) {
	session, ok := s.VerifyToken(ctx, token)
	if !ok {
		return "", ErrInvalidToken
	}
	key, err := s.store.LockKeys().GetActiveByBookingID(ctx, session.Booking.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.Precondition("no active key to send")
	}
	if err != nil {
		return "", err
	}

	remarks := fmt.Sprintf("Room %s - %s", session.Room.RoomNumber, session.Booking.GuestName)
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	keyID, err := s.provider.SendCredentialToGuestApp(callCtx, key.LockID, session.Booking.GuestEmail, key.ValidFrom, key.ValidTo, remarks)
	if err != nil {
		return "", s.actionFailed(ctx, session, "send ekey", "Sending the key failed. Please contact reception.", err)
	}

	s.logger.InfoContext(ctx, "ekey sent", "booking_id", session.Booking.ID, "lock_key_id", key.ID)
	event := domain.NewBookingEvent(domain.EventCredentialSent, &session.Booking, s.now())
	event.RoomNumber = session.Room.RoomNumber
	event.LockKeyID = key.ID
	s.publish(ctx, event)
	return keyID, nil
}

func (s *GuestAccessService) actionFailed(ctx context.Context, session *Session, action, message string, cause error) error {
	s.logger.ErrorContext(ctx, "guest portal action failed",
		"action", action, "booking_id", session.Booking.ID, "room_number", session.Room.RoomNumber,
		"kind", lockprovider.KindOf(cause).String(), "error", cause)
	actionErr := &ActionError{Message: message}
	if lockprovider.IsConfig(cause) {
		actionErr.Hint = "The lock for this room is not fully set up yet, please ask reception."
	}
	return actionErr
}

func (s *GuestAccessService) publish(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"type", event.Type, "booking_id", event.BookingID, "error", err)
	}
}

var _ GuestAccessUseCase = (*GuestAccessService)(nil)
