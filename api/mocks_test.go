package api

import (
	"context"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/service/booking"
	"github.com/Domenick1991/hotelaccess/internal/service/guestaccess"
	"github.com/Domenick1991/hotelaccess/internal/service/lockkey"
	"github.com/Domenick1991/hotelaccess/internal/service/rooms"
	"github.com/stretchr/testify/mock"
)

type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) SubmitCheckIn(ctx context.Context, referenceCode string, input booking.CheckInInput) (*domain.CheckInInfo, error) {
	args := m.Called(ctx, referenceCode, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CheckInInfo), args.Error(1)
}

func (m *MockBookingUseCase) LookupBooking(ctx context.Context, referenceCode string) (*booking.BookingDetails, error) {
	args := m.Called(ctx, referenceCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.BookingDetails), args.Error(1)
}

func (m *MockBookingUseCase) CancelBooking(ctx context.Context, referenceCode string) (*domain.Booking, error) {
	args := m.Called(ctx, referenceCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) CheckOut(ctx context.Context, bookingID string) (*domain.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockLockKeyUseCase struct {
	mock.Mock
}

func (m *MockLockKeyUseCase) IssueLockKey(ctx context.Context, bookingID string) (*lockkey.IssuedKey, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lockkey.IssuedKey), args.Error(1)
}

func (m *MockLockKeyUseCase) RevokeLockKeys(ctx context.Context, bookingID string) (*lockkey.RevocationReport, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lockkey.RevocationReport), args.Error(1)
}

func (m *MockLockKeyUseCase) ExpireOldLockKeys(ctx context.Context) ([]domain.LockKey, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.LockKey), args.Error(1)
}

func (m *MockLockKeyUseCase) GetActiveLockKey(ctx context.Context, bookingID string) (*domain.LockKey, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LockKey), args.Error(1)
}

type MockTokenIssuer struct {
	mock.Mock
}

func (m *MockTokenIssuer) IssueToken(ctx context.Context, bookingID string) (*guestaccess.IssuedToken, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*guestaccess.IssuedToken), args.Error(1)
}

type MockGuestAccessUseCase struct {
	MockTokenIssuer
}

func (m *MockGuestAccessUseCase) VerifyToken(ctx context.Context, token string) (*guestaccess.Session, bool) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*guestaccess.Session), args.Bool(1)
}

func (m *MockGuestAccessUseCase) MagicLink(token string) string {
	return m.Called(token).String(0)
}

func (m *MockGuestAccessUseCase) GetPortal(ctx context.Context, token string) (*guestaccess.Portal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*guestaccess.Portal), args.Error(1)
}

func (m *MockGuestAccessUseCase) UnlockNow(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockGuestAccessUseCase) ResendCredential(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

type MockRoomUseCase struct {
	mock.Mock
}

func (m *MockRoomUseCase) ListAvailableRoomTypes(ctx context.Context, checkIn, checkOut time.Time, guests int) ([]rooms.Availability, error) {
	args := m.Called(ctx, checkIn, checkOut, guests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]rooms.Availability), args.Error(1)
}

func (m *MockRoomUseCase) GetRoomType(ctx context.Context, id string) (*domain.RoomType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RoomType), args.Error(1)
}

func (m *MockRoomUseCase) ListAdditionalServices(ctx context.Context) ([]domain.AdditionalService, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AdditionalService), args.Error(1)
}

type MockAllocationUseCase struct {
	mock.Mock
}

func (m *MockAllocationUseCase) AllocateRoom(ctx context.Context, bookingID, roomTypeID string) (*domain.Room, error) {
	args := m.Called(ctx, bookingID, roomTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Room), args.Error(1)
}
