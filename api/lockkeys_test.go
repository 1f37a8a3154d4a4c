package api

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/service/lockkey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLockKeyHandler_issue(t *testing.T) {
	service := &MockLockKeyUseCase{}
	handler := NewLockKeyHandler(service, nil)
	c, w := newTestContext(http.MethodPost, "/api/v1/lock-keys/issue", bookingIDRequest{BookingID: "b-1"})

	service.On("IssueLockKey", mock.Anything, "b-1").Return(&lockkey.IssuedKey{
		Key: domain.LockKey{
			ID:        "k-1",
			Passcode:  "123456",
			ValidFrom: time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC),
			ValidTo:   time.Date(2026, 3, 12, 11, 0, 0, 0, time.UTC),
			Status:    domain.LockKeyStatusActive,
		},
		RoomNumber: "101",
	}, nil)

	handler.issue(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decodeBody[lockKeyResponse](t, w)
	assert.Equal(t, "123456", resp.Passcode)
	assert.Equal(t, "ACTIVE", resp.Status)
	assert.Equal(t, "101", resp.RoomNumber)
}

func TestLockKeyHandler_issueErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "already issued", err: domain.Conflict("an active lock key already exists for this booking"), wantStatus: http.StatusConflict},
		{name: "no check-in", err: domain.Precondition("check-in has not been submitted"), wantStatus: http.StatusPreconditionFailed},
		{name: "unknown booking", err: domain.NotFound("booking not found"), wantStatus: http.StatusNotFound},
		{name: "provider", err: domain.Provider("failed to create passcode", errors.New("timeout")), wantStatus: http.StatusBadGateway},
		{name: "unexpected", err: errors.New("connection reset"), wantStatus: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &MockLockKeyUseCase{}
			handler := NewLockKeyHandler(service, nil)
			c, w := newTestContext(http.MethodPost, "/api/v1/lock-keys/issue", bookingIDRequest{BookingID: "b-1"})
			service.On("IssueLockKey", mock.Anything, "b-1").Return(nil, tt.err)

			handler.issue(c)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotContains(t, w.Body.String(), "timeout")
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}
}

func TestLockKeyHandler_issueRequiresBookingID(t *testing.T) {
	service := &MockLockKeyUseCase{}
	handler := NewLockKeyHandler(service, nil)
	c, w := newTestContext(http.MethodPost, "/api/v1/lock-keys/issue", map[string]string{})

	handler.issue(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "IssueLockKey", mock.Anything, mock.Anything)
}

func TestLockKeyHandler_revoke(t *testing.T) {
	service := &MockLockKeyUseCase{}
	handler := NewLockKeyHandler(service, nil)
	c, w := newTestContext(http.MethodPost, "/api/v1/lock-keys/revoke", bookingIDRequest{BookingID: "b-1"})

	service.On("RevokeLockKeys", mock.Anything, "b-1").Return(&lockkey.RevocationReport{
		Revoked:  []string{"k-1", "k-2"},
		Failures: []lockkey.KeyFailure{{LockKeyID: "k-1", Err: errors.New("gateway offline")}},
	}, nil)

	handler.revoke(c)

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[revokeResponse](t, w)
	assert.Equal(t, []string{"k-1", "k-2"}, resp.Revoked)
	assert.Equal(t, []string{"k-1"}, resp.NotOnLock)
	assert.NotEmpty(t, resp.ProviderNote)
	assert.NotContains(t, w.Body.String(), "gateway offline")
}

func TestLockKeyHandler_revokeNothingActive(t *testing.T) {
	service := &MockLockKeyUseCase{}
	handler := NewLockKeyHandler(service, nil)
	c, w := newTestContext(http.MethodPost, "/api/v1/lock-keys/revoke", bookingIDRequest{BookingID: "b-1"})
	service.On("RevokeLockKeys", mock.Anything, "b-1").Return(&lockkey.RevocationReport{}, nil)

	handler.revoke(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"revoked":[]}`, w.Body.String())
}

func TestLockKeyHandler_status(t *testing.T) {
	t.Run("active", func(t *testing.T) {
		service := &MockLockKeyUseCase{}
		handler := NewLockKeyHandler(service, nil)
		c, w := newTestContext(http.MethodGet, "/api/v1/lock-keys/status?booking_id=b-1", nil)
		service.On("GetActiveLockKey", mock.Anything, "b-1").Return(&domain.LockKey{ID: "k-1", Passcode: "654321", Status: domain.LockKeyStatusActive}, nil)

		handler.status(c)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[lockKeyStatusResponse](t, w)
		assert.True(t, resp.Active)
		require.NotNil(t, resp.LockKey)
		assert.Equal(t, "654321", resp.LockKey.Passcode)
	})

	t.Run("none", func(t *testing.T) {
		service := &MockLockKeyUseCase{}
		handler := NewLockKeyHandler(service, nil)
		c, w := newTestContext(http.MethodGet, "/api/v1/lock-keys/status?booking_id=b-1", nil)
		service.On("GetActiveLockKey", mock.Anything, "b-1").Return(nil, domain.NotFound("no active lock key"))

		handler.status(c)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeBody[lockKeyStatusResponse](t, w)
		assert.False(t, resp.Active)
		assert.Nil(t, resp.LockKey)
	})

	t.Run("missing booking id", func(t *testing.T) {
		handler := NewLockKeyHandler(&MockLockKeyUseCase{}, nil)
		c, w := newTestContext(http.MethodGet, "/api/v1/lock-keys/status", nil)

		handler.status(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
