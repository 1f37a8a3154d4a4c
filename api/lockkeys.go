package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/service/lockkey"
	"github.com/gin-gonic/gin"
)

// LockKeyHandler serves the staff-facing credential endpoints.
type LockKeyHandler struct {
	service lockkey.LockKeyUseCase
	logger  *slog.Logger
}

type bookingIDRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
}

type revokeResponse struct {
	Revoked      []string `json:"revoked"`
	NotOnLock    []string `json:"not_removed_from_lock,omitempty"`
	ProviderNote string   `json:"note,omitempty"`
}

type lockKeyStatusResponse struct {
	BookingID string           `json:"booking_id"`
	Active    bool             `json:"active"`
	LockKey   *lockKeyResponse `json:"lock_key,omitempty"`
}

func NewLockKeyHandler(service lockkey.LockKeyUseCase, logger *slog.Logger) *LockKeyHandler {
	return &LockKeyHandler{service: service, logger: loggerOrDiscard(logger)}
}

func (h *LockKeyHandler) Register(router *gin.RouterGroup) {
	router.POST("/issue", h.issue)
	router.POST("/revoke", h.revoke)
	router.GET("/status", h.status)
}

func (h *LockKeyHandler) issue(c *gin.Context) {
	var req bookingIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	issued, err := h.service.IssueLockKey(c.Request.Context(), req.BookingID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toLockKeyResponse(issued.Key, issued.RoomNumber))
}

func (h *LockKeyHandler) revoke(c *gin.Context) {
	var req bookingIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	report, err := h.service.RevokeLockKeys(c.Request.Context(), req.BookingID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	resp := revokeResponse{Revoked: report.Revoked}
	if resp.Revoked == nil {
		resp.Revoked = []string{}
	}
	for _, f := range report.Failures {
		resp.NotOnLock = append(resp.NotOnLock, f.LockKeyID)
	}
	if len(resp.NotOnLock) > 0 {
		resp.ProviderNote = "some codes could not be removed from the lock and may still open the door"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LockKeyHandler) status(c *gin.Context) {
	bookingID := c.Query("booking_id")
	if bookingID == "" {
		badRequest(c, "booking_id is required")
		return
	}
	key, err := h.service.GetActiveLockKey(c.Request.Context(), bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusOK, lockKeyStatusResponse{BookingID: bookingID})
		return
	}
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, lockKeyStatusResponse{BookingID: bookingID, Active: true, LockKey: toLockKeyResponse(*key, "")})
}
