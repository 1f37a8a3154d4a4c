package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/service/booking"
	"github.com/Domenick1991/hotelaccess/internal/service/guestaccess"
	"github.com/Domenick1991/hotelaccess/internal/service/lockkey"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestContext(method, path string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	c.Request = httptest.NewRequest(method, path, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func sampleBooking() *domain.Booking {
	roomID := "room-1"
	return &domain.Booking{
		ID:              "b-1",
		ReferenceCode:   "ABC234",
		RoomTypeID:      "rt-1",
		RoomID:          &roomID,
		Status:          domain.BookingStatusPendingCheckIn,
		GuestName:       "Alice Guest",
		GuestEmail:      "alice@example.com",
		CheckInDate:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CheckOutDate:    time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		BasePriceCents:  10000,
		TotalPriceCents: 20000,
		Locale:          "en",
	}
}

func TestBookingHandler_create(t *testing.T) {
	bookings := &MockBookingUseCase{}
	handler := NewBookingHandler(bookings, &MockLockKeyUseCase{}, &MockTokenIssuer{}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/bookings", createBookingRequest{
		RoomTypeID: "rt-1",
		CheckIn:    "2026-03-10",
		CheckOut:   "2026-03-12",
		GuestName:  "Alice Guest",
		GuestEmail: "alice@example.com",
	})

	expected := booking.CreateBookingInput{
		RoomTypeID: "rt-1",
		CheckIn:    time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		GuestName:  "Alice Guest",
		GuestEmail: "alice@example.com",
	}
	bookings.On("CreateBooking", mock.Anything, expected).Return(sampleBooking(), nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeBody[bookingResponse](t, w)
	assert.Equal(t, "ABC234", resp.ReferenceCode)
	assert.Equal(t, "PENDING_CHECKIN", resp.Status)
	assert.Equal(t, 2, resp.Nights)
	assert.Equal(t, int64(20000), resp.TotalPriceCents)
	assert.Equal(t, "2026-03-10", resp.CheckIn)
	assert.False(t, resp.CheckInDone)
	bookings.AssertExpectations(t)
}

func TestBookingHandler_createRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{name: "malformed json", body: "{"},
		{name: "missing guest email", body: map[string]string{"room_type_id": "rt-1", "check_in": "2026-03-10", "check_out": "2026-03-12", "guest_name": "A"}},
		{name: "bad check-in date", body: createBookingRequest{RoomTypeID: "rt-1", CheckIn: "10/03/2026", CheckOut: "2026-03-12", GuestName: "A", GuestEmail: "a@example.com"}},
		{name: "bad check-out date", body: createBookingRequest{RoomTypeID: "rt-1", CheckIn: "2026-03-10", CheckOut: "tomorrow", GuestName: "A", GuestEmail: "a@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings := &MockBookingUseCase{}
			handler := NewBookingHandler(bookings, &MockLockKeyUseCase{}, &MockTokenIssuer{}, nil)
			c, w := newTestContext(http.MethodPost, "/api/v1/bookings", tt.body)

			handler.create(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, string(domain.CodeValidation), decodeBody[errorResponse](t, w).Code)
			bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
		})
	}
}

func TestBookingHandler_createServiceError(t *testing.T) {
	bookings := &MockBookingUseCase{}
	handler := NewBookingHandler(bookings, &MockLockKeyUseCase{}, &MockTokenIssuer{}, nil)
	c, w := newTestContext(http.MethodPost, "/api/v1/bookings", createBookingRequest{
		RoomTypeID: "rt-1", CheckIn: "2026-03-10", CheckOut: "2026-03-10", GuestName: "A", GuestEmail: "a@example.com",
	})
	bookings.On("CreateBooking", mock.Anything, mock.Anything).
		Return(nil, domain.Validation("check-out date must be after check-in date"))

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[errorResponse](t, w)
	assert.Equal(t, "check-out date must be after check-in date", resp.Error)
	assert.Equal(t, string(domain.CodeValidation), resp.Code)
}

func TestBookingHandler_lookupNotFound(t *testing.T) {
	bookings := &MockBookingUseCase{}
	handler := NewBookingHandler(bookings, &MockLockKeyUseCase{}, &MockTokenIssuer{}, nil)
	c, w := newTestContext(http.MethodGet, "/api/v1/bookings/ZZZ999", nil)
	c.Params = gin.Params{{Key: "ref", Value: "ZZZ999"}}
	bookings.On("LookupBooking", mock.Anything, "ZZZ999").Return(nil, domain.NotFound("booking not found"))

	handler.lookup(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(domain.CodeNotFound), decodeBody[errorResponse](t, w).Code)
}

func TestBookingHandler_lookup(t *testing.T) {
	bookings := &MockBookingUseCase{}
	handler := NewBookingHandler(bookings, &MockLockKeyUseCase{}, &MockTokenIssuer{}, nil)
	c, w := newTestContext(http.MethodGet, "/api/v1/bookings/ABC234", nil)
	c.Params = gin.Params{{Key: "ref", Value: "ABC234"}}
	bookings.On("LookupBooking", mock.Anything, "ABC234").Return(&booking.BookingDetails{
		Booking:  *sampleBooking(),
		RoomType: &domain.RoomType{ID: "rt-1", Name: "Standard Double"},
		Room:     &domain.Room{ID: "room-1", RoomNumber: "101"},
		CheckIn:  &domain.CheckInInfo{BookingID: "b-1"},
	}, nil)

	handler.lookup(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[bookingResponse](t, w)
	assert.Equal(t, "Standard Double", resp.RoomTypeName)
	assert.Equal(t, "101", resp.RoomNumber)
	assert.True(t, resp.CheckInDone)
}

func checkInBody() checkInRequest {
	return checkInRequest{LegalName: "Alice Guest", DocumentNumber: "X1234567", DocumentCountry: "tr"}
}

func TestBookingHandler_checkIn(t *testing.T) {
	bookings := &MockBookingUseCase{}
	keys := &MockLockKeyUseCase{}
	tokens := &MockTokenIssuer{}
	handler := NewBookingHandler(bookings, keys, tokens, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/bookings/ABC234/check-in", checkInBody())
	c.Params = gin.Params{{Key: "ref", Value: "ABC234"}}

	checkedIn := sampleBooking()
	checkedIn.Status = domain.BookingStatusCheckedIn
	from := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 12, 11, 0, 0, 0, time.UTC)

	bookings.On("SubmitCheckIn", mock.Anything, "ABC234", booking.CheckInInput{
		LegalName: "Alice Guest", DocumentNumber: "X1234567", DocumentCountry: "tr",
	}).Return(&domain.CheckInInfo{BookingID: "b-1"}, nil)
	keys.On("IssueLockKey", mock.Anything, "b-1").Return(&lockkey.IssuedKey{
		Key:        domain.LockKey{ID: "k-1", Passcode: "482913", ValidFrom: from, ValidTo: to, Status: domain.LockKeyStatusActive},
		RoomNumber: "101",
		Booking:    *checkedIn,
	}, nil)
	tokens.On("IssueToken", mock.Anything, "b-1").Return(&guestaccess.IssuedToken{
		Token: "tok", MagicLink: "https://hotel.test/guest-portal?token=tok",
	}, nil)

	handler.checkIn(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[checkInResponse](t, w)
	assert.Equal(t, "CHECKED_IN", resp.Status)
	require.NotNil(t, resp.LockKey)
	assert.Equal(t, "482913", resp.LockKey.Passcode)
	assert.Equal(t, "101", resp.LockKey.RoomNumber)
	assert.Equal(t, "2026-03-10T14:00:00Z", resp.LockKey.ValidFrom)
	assert.Equal(t, "2026-03-12T11:00:00Z", resp.LockKey.ValidTo)
	assert.Equal(t, "https://hotel.test/guest-portal?token=tok", resp.MagicLink)
	assert.Nil(t, resp.Issue)
	bookings.AssertExpectations(t)
	keys.AssertExpectations(t)
	tokens.AssertExpectations(t)
}

func TestBookingHandler_checkInKeptWhenIssuanceFails(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "no room free",
			err:         domain.NoAvailability("no rooms available for the selected dates, please contact staff"),
			wantCode:    string(domain.CodeNoAvailability),
			wantMessage: "no rooms available for the selected dates, please contact staff",
		},
		{
			name:        "lock provider down",
			err:         domain.Provider("failed to create passcode", errors.New("errcode -3: invalid client_secret")),
			wantCode:    string(domain.CodeProvider),
			wantMessage: providerMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bookings := &MockBookingUseCase{}
			keys := &MockLockKeyUseCase{}
			tokens := &MockTokenIssuer{}
			handler := NewBookingHandler(bookings, keys, tokens, nil)

			c, w := newTestContext(http.MethodPost, "/api/v1/bookings/ABC234/check-in", checkInBody())
			c.Params = gin.Params{{Key: "ref", Value: "ABC234"}}
			bookings.On("SubmitCheckIn", mock.Anything, "ABC234", mock.Anything).Return(&domain.CheckInInfo{BookingID: "b-1"}, nil)
			keys.On("IssueLockKey", mock.Anything, "b-1").Return(nil, tt.err)

			handler.checkIn(c)

			assert.Equal(t, http.StatusAccepted, w.Code)
			assert.NotContains(t, w.Body.String(), "client_secret")
			resp := decodeBody[checkInResponse](t, w)
			assert.Equal(t, "PENDING_CHECKIN", resp.Status)
			assert.Nil(t, resp.LockKey)
			require.NotNil(t, resp.Issue)
			assert.Equal(t, tt.wantCode, resp.Issue.Code)
			assert.Equal(t, tt.wantMessage, resp.Issue.Error)
			tokens.AssertNotCalled(t, "IssueToken", mock.Anything, mock.Anything)
		})
	}
}

func TestBookingHandler_checkInTokenFailureStillReturnsKey(t *testing.T) {
	bookings := &MockBookingUseCase{}
	keys := &MockLockKeyUseCase{}
	tokens := &MockTokenIssuer{}
	handler := NewBookingHandler(bookings, keys, tokens, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/bookings/ABC234/check-in", checkInBody())
	c.Params = gin.Params{{Key: "ref", Value: "ABC234"}}
	checkedIn := sampleBooking()
	checkedIn.Status = domain.BookingStatusCheckedIn
	bookings.On("SubmitCheckIn", mock.Anything, "ABC234", mock.Anything).Return(&domain.CheckInInfo{BookingID: "b-1"}, nil)
	keys.On("IssueLockKey", mock.Anything, "b-1").Return(&lockkey.IssuedKey{
		Key: domain.LockKey{ID: "k-1", Passcode: "111222"}, RoomNumber: "101", Booking: *checkedIn,
	}, nil)
	tokens.On("IssueToken", mock.Anything, "b-1").Return(nil, errors.New("signing failed"))

	handler.checkIn(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[checkInResponse](t, w)
	require.NotNil(t, resp.LockKey)
	assert.Empty(t, resp.MagicLink)
}

func TestBookingHandler_checkInRejected(t *testing.T) {
	bookings := &MockBookingUseCase{}
	keys := &MockLockKeyUseCase{}
	handler := NewBookingHandler(bookings, keys, &MockTokenIssuer{}, nil)

	c, w := newTestContext(http.MethodPost, "/api/v1/bookings/ABC234/check-in", checkInBody())
	c.Params = gin.Params{{Key: "ref", Value: "ABC234"}}
	bookings.On("SubmitCheckIn", mock.Anything, "ABC234", mock.Anything).
		Return(nil, domain.InvalidState("check-in is not allowed for a booking in status CHECKED_IN"))

	handler.checkIn(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(domain.CodeInvalidState), decodeBody[errorResponse](t, w).Code)
	keys.AssertNotCalled(t, "IssueLockKey", mock.Anything, mock.Anything)
}

func TestBookingHandler_cancel(t *testing.T) {
	bookings := &MockBookingUseCase{}
	handler := NewBookingHandler(bookings, &MockLockKeyUseCase{}, &MockTokenIssuer{}, nil)
	c, w := newTestContext(http.MethodPost, "/api/v1/bookings/ABC234/cancel", nil)
	c.Params = gin.Params{{Key: "ref", Value: "ABC234"}}

	cancelled := sampleBooking()
	cancelled.Status = domain.BookingStatusCancelled
	bookings.On("CancelBooking", mock.Anything, "ABC234").Return(cancelled, nil)

	handler.cancel(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CANCELLED", decodeBody[bookingResponse](t, w).Status)
}

func TestBookingHandler_checkOut(t *testing.T) {
	bookings := &MockBookingUseCase{}
	handler := NewBookingHandler(bookings, &MockLockKeyUseCase{}, &MockTokenIssuer{}, nil)
	c, w := newTestContext(http.MethodPost, "/api/v1/bookings/ABC234/check-out", nil)
	c.Params = gin.Params{{Key: "ref", Value: "ABC234"}}

	checkedOut := sampleBooking()
	checkedOut.Status = domain.BookingStatusCheckedOut
	bookings.On("LookupBooking", mock.Anything, "ABC234").Return(&booking.BookingDetails{
		Booking: *sampleBooking(),
		Room:    &domain.Room{ID: "room-1", RoomNumber: "101"},
	}, nil)
	bookings.On("CheckOut", mock.Anything, "b-1").Return(checkedOut, nil)

	handler.checkOut(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[bookingResponse](t, w)
	assert.Equal(t, "CHECKED_OUT", resp.Status)
	assert.Equal(t, "101", resp.RoomNumber)
}
