package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/refcode"
	"github.com/Domenick1991/hotelaccess/internal/repository"
	"github.com/Domenick1991/hotelaccess/internal/retry"
	"github.com/Domenick1991/hotelaccess/internal/service/allocation"
	"github.com/Domenick1991/hotelaccess/internal/service/lockkey"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	SubmitCheckIn(ctx context.Context, referenceCode string, input CheckInInput) (*domain.CheckInInfo, error)
	LookupBooking(ctx context.Context, referenceCode string) (*BookingDetails, error)
	CancelBooking(ctx context.Context, referenceCode string) (*domain.Booking, error)
	CheckOut(ctx context.Context, bookingID string) (*domain.Booking, error)
}

// Revoker takes a booking's credentials off its lock.
type Revoker interface {
	RevokeLockKeys(ctx context.Context, bookingID string) (*lockkey.RevocationReport, error)
}

var errCodeRace = errors.New("reference code taken by a concurrent insert")

type CreateBookingInput struct {
	RoomTypeID string    `json:"room_type_id" validate:"required"`
	CheckIn    time.Time `json:"check_in" validate:"required"`
	CheckOut   time.Time `json:"check_out" validate:"required"`
	GuestName  string    `json:"guest_name" validate:"required,max=200"`
	GuestEmail string    `json:"guest_email" validate:"required,email"`
	GuestPhone string    `json:"guest_phone" validate:"omitempty,max=32"`
	Locale     string    `json:"locale" validate:"omitempty,max=10"`
}

type CheckInInput struct {
	LegalName            string   `json:"legal_name" validate:"required,max=200"`
	DocumentNumber       string   `json:"document_number" validate:"required,max=64"`
	DocumentCountry      string   `json:"document_country" validate:"omitempty,len=2,alpha"`
	Services             []string `json:"services" validate:"omitempty,dive,required,max=64"`
	EstimatedArrivalTime string   `json:"estimated_arrival_time" validate:"omitempty,max=16"`
	SpecialRequests      string   `json:"special_requests" validate:"omitempty,max=1000"`
}

// BookingDetails is a booking with the records a guest-facing lookup shows next to it.
type BookingDetails struct {
	Booking  domain.Booking
	RoomType *domain.RoomType
	Room     *domain.Room
	CheckIn  *domain.CheckInInfo
}

type BookingService struct {
	store     repository.Store
	codes     *refcode.Generator
	revoker   Revoker
	publisher domain.Publisher
	validate  *validator.Validate
	house     domain.HouseTimes
	now       func() time.Time
	logger    *slog.Logger
}

type BookingServiceOption func(*BookingService)

func WithRevoker(r Revoker) BookingServiceOption {
	return func(s *BookingService) {
		s.revoker = r
	}
}

func WithPublisher(p domain.Publisher) BookingServiceOption {
	return func(s *BookingService) {
		s.publisher = p
	}
}

func WithHouseTimes(h domain.HouseTimes) BookingServiceOption {
	return func(s *BookingService) {
		s.house = h
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithLogger(l *slog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = l
	}
}

func NewBookingService(store repository.Store, codes *refcode.Generator, opts ...BookingServiceOption) *BookingService {
	if codes == nil {
		codes = refcode.NewGenerator(refcode.DefaultMaxAttempts)
	}
	service := &BookingService{
		store:    store,
		codes:    codes,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		house:    domain.DefaultHouseTimes(),
		now:      time.Now,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	checkIn, checkOut := domain.DateOf(input.CheckIn), domain.DateOf(input.CheckOut)
	if !checkOut.After(checkIn) {
		return nil, domain.Validation("check-out date must be after check-in date")
	}
	if checkIn.Before(s.house.Today(s.now())) {
		return nil, domain.Validation("check-in date cannot be in the past")
	}

	roomType, err := s.store.Rooms().GetRoomType(ctx, input.RoomTypeID)
	if err != nil {
		return nil, err
	}
	if !roomType.IsActive {
		return nil, domain.NotFound("room type %s not found", input.RoomTypeID)
	}

	nights := domain.Nights(checkIn, checkOut)
	booking := &domain.Booking{
		ID:              uuid.NewString(),
		RoomTypeID:      roomType.ID,
		Status:          domain.BookingStatusPendingCheckIn,
		GuestName:       strings.TrimSpace(input.GuestName),
		GuestEmail:      strings.ToLower(strings.TrimSpace(input.GuestEmail)),
		CheckInDate:     checkIn,
		CheckOutDate:    checkOut,
		BasePriceCents:  roomType.BasePriceCents,
		TotalPriceCents: domain.TotalPrice(roomType.BasePriceCents, nights),
		Locale:          input.Locale,
	}
	if phone := strings.TrimSpace(input.GuestPhone); phone != "" {
		booking.GuestPhone = &phone
	}
	if booking.Locale == "" {
		booking.Locale = "en"
	}

	// The existence check narrows collisions; the unique constraint settles races
	// between concurrent inserts, which are retried with a fresh code.
	err = retry.Do(ctx, retry.Policy{
		MaxAttempts: 3,
		Retryable:   func(err error) bool { return errors.Is(err, errCodeRace) },
	}, func(ctx context.Context, _ int) error {
		return s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
			free, err := allocation.Capacity(ctx, tx, roomType.ID, booking.Stay(), "")
			if err != nil {
				return err
			}
			if free == 0 {
				return domain.NoAvailability("no %s rooms available for the selected dates", roomType.Name)
			}
			code, err := s.codes.Generate(ctx, tx.Bookings().ReferenceExists)
			if err != nil {
				return err
			}
			booking.ReferenceCode = code
			if err := tx.Bookings().Create(ctx, booking); err != nil {
				if errors.Is(err, domain.ErrConflict) {
					return fmt.Errorf("%w: %w", errCodeRace, err)
				}
				return err
			}
			return nil
		})
	})
	if errors.Is(err, retry.ErrExhausted) {
		return nil, domain.NewError(domain.CodeConflict, "could not allocate a unique reference code", err)
	}
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "booking created",
		"booking_id", booking.ID, "reference_code", booking.ReferenceCode, "nights", nights)
	s.publish(ctx, domain.NewBookingEvent(domain.EventBookingCreated, booking, s.now()))
	return booking, nil
}

func (s *BookingService) SubmitCheckIn(ctx context.Context, referenceCode string, input CheckInInput) (*domain.CheckInInfo, error) {
	if err := s.check(input); err != nil {
		return nil, err
	}

	code, err := canonicalCode(referenceCode)
	if err != nil {
		return nil, err
	}

	var info *domain.CheckInInfo
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		booking, err := tx.Bookings().GetByReference(ctx, code)
		if err != nil {
			return err
		}
		if booking.Status != domain.BookingStatusPendingCheckIn {
			return domain.InvalidState("check-in is not possible for a booking in status %s", booking.Status)
		}
		services, err := offeredServices(ctx, tx, input.Services)
		if err != nil {
			return err
		}
		info = &domain.CheckInInfo{
			ID:              uuid.NewString(),
			BookingID:       booking.ID,
			LegalName:       strings.TrimSpace(input.LegalName),
			DocumentNumber:  strings.TrimSpace(input.DocumentNumber),
			DocumentCountry: strings.ToUpper(input.DocumentCountry),
			Extras: domain.CheckInExtras{
				Services:             services,
				EstimatedArrivalTime: input.EstimatedArrivalTime,
				SpecialRequests:      input.SpecialRequests,
			},
		}
		return tx.CheckIns().Create(ctx, info)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "check-in submitted", "booking_id", info.BookingID)
	return info, nil
}

func (s *BookingService) LookupBooking(ctx context.Context, referenceCode string) (*BookingDetails, error) {
	code, err := canonicalCode(referenceCode)
	if err != nil {
		return nil, err
	}
	booking, err := s.store.Bookings().GetByReference(ctx, code)
	if err != nil {
		return nil, err
	}

	details := &BookingDetails{Booking: *booking}
	if details.RoomType, err = s.store.Rooms().GetRoomType(ctx, booking.RoomTypeID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if booking.HasRoom() {
		if details.Room, err = s.store.Rooms().GetRoom(ctx, *booking.RoomID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if details.CheckIn, err = s.store.CheckIns().GetByBookingID(ctx, booking.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return details, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, referenceCode string) (*domain.Booking, error) {
	code, err := canonicalCode(referenceCode)
	if err != nil {
		return nil, err
	}

	var (
		booking *domain.Booking
		events  []domain.EventType
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		booking, err = tx.Bookings().GetByReference(ctx, code)
		if err != nil {
			return err
		}
		events, err = s.advance(ctx, tx, booking, domain.ActionCancel)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, booking, events), nil
}

func (s *BookingService) CheckOut(ctx context.Context, bookingID string) (*domain.Booking, error) {
	var (
		booking *domain.Booking
		events  []domain.EventType
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Repositories) error {
		var err error
		booking, err = tx.Bookings().GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		events, err = s.advance(ctx, tx, booking, domain.ActionCheckOut)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, booking, events), nil
}

func (s *BookingService) advance(ctx context.Context, tx repository.Repositories, booking *domain.Booking, action domain.BookingAction) ([]domain.EventType, error) {
	to, events, err := domain.Transition(booking.Status, action)
	if err != nil {
		return nil, err
	}
	if err := tx.Bookings().UpdateStatus(ctx, booking.ID, booking.Status, to); err != nil {
		return nil, err
	}
	booking.Status = to
	return events, nil
}

// finish runs the side effects of a committed move out of the occupying states.
func (s *BookingService) finish(ctx context.Context, booking *domain.Booking, events []domain.EventType) *domain.Booking {
	s.logger.InfoContext(ctx, "booking status changed",
		"booking_id", booking.ID, "reference_code", booking.ReferenceCode, "status", booking.Status)

	if s.revoker != nil {
		report, err := s.revoker.RevokeLockKeys(ctx, booking.ID)
		switch {
		case err != nil:
			s.logger.ErrorContext(ctx, "failed to revoke lock keys", "booking_id", booking.ID, "error", err)
		case len(report.Failures) > 0:
			s.logger.WarnContext(ctx, "lock keys revoked locally but not on the lock",
				"booking_id", booking.ID, "failed", len(report.Failures))
		}
	}

	now := s.now()
	for _, t := range events {
		s.publish(ctx, domain.NewBookingEvent(t, booking, now))
	}
	return booking
}

func (s *BookingService) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return domain.NewError(domain.CodeValidation, fmt.Sprintf("invalid %s: failed %q", fe.Field(), fe.Tag()), err)
	}
	return domain.NewError(domain.CodeValidation, "invalid input", err)
}

func (s *BookingService) publish(ctx context.Context, event domain.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"type", event.Type, "booking_id", event.BookingID, "error", err)
	}
}

// offeredServices maps requested add-on codes onto the active catalogue, upper-cased
// and without repeats. An unknown or withdrawn code is a ValidationError.
func offeredServices(ctx context.Context, tx repository.Repositories, requested []string) ([]string, error) {
	out := make([]string, 0, len(requested))
	if len(requested) == 0 {
		return out, nil
	}
	catalogue, err := tx.Rooms().ListAdditionalServices(ctx)
	if err != nil {
		return nil, err
	}
	active := make(map[string]bool, len(catalogue))
	for _, svc := range catalogue {
		active[svc.Code] = true
	}
	seen := make(map[string]bool, len(requested))
	for _, code := range requested {
		code = strings.ToUpper(strings.TrimSpace(code))
		if !active[code] {
			return nil, domain.Validation("service %q is not offered", code)
		}
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	return out, nil
}

// canonicalCode upper-cases a guest-typed reference and rejects one that cannot exist.
func canonicalCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !refcode.Valid(code) {
		return "", domain.Validation("reference code %q is not valid", code)
	}
	return code, nil
}

var _ BookingUseCase = (*BookingService)(nil)
