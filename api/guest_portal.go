package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Domenick1991/hotelaccess/internal/service/guestaccess"
	"github.com/gin-gonic/gin"
)

type GuestPortalHandler struct {
	service guestaccess.GuestAccessUseCase
	logger  *slog.Logger
}

type tokenRequest struct {
	Token string `json:"token"`
}

type portalResponse struct {
	ReferenceCode string           `json:"reference_code"`
	GuestName     string           `json:"guest_name"`
	RoomNumber    string           `json:"room_number"`
	CheckIn       string           `json:"check_in"`
	CheckOut      string           `json:"check_out"`
	LockKey       *lockKeyResponse `json:"lock_key,omitempty"`
}

func NewGuestPortalHandler(service guestaccess.GuestAccessUseCase, logger *slog.Logger) *GuestPortalHandler {
	return &GuestPortalHandler{service: service, logger: loggerOrDiscard(logger)}
}

func (h *GuestPortalHandler) Register(router *gin.RouterGroup) {
	router.GET("", h.portal)
	router.POST("/unlock", h.unlock)
	router.POST("/send-ekey", h.sendEKey)
}

func (h *GuestPortalHandler) portal(c *gin.Context) {
	portal, err := h.service.GetPortal(c.Request.Context(), tokenFrom(c, ""))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := portalResponse{
		ReferenceCode: portal.ReferenceCode,
		GuestName:     portal.GuestName,
		RoomNumber:    portal.RoomNumber,
		CheckIn:       formatDate(portal.CheckInDate),
		CheckOut:      formatDate(portal.CheckOutDate),
	}
	if portal.Key != nil {
		resp.LockKey = toLockKeyResponse(*portal.Key, portal.RoomNumber)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GuestPortalHandler) unlock(c *gin.Context) {
	var req tokenRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.service.UnlockNow(c.Request.Context(), tokenFrom(c, req.Token)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unlocked"})
}

func (h *GuestPortalHandler) sendEKey(c *gin.Context) {
	var req tokenRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	keyID, err := h.service.ResendCredential(c.Request.Context(), tokenFrom(c, req.Token))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent", "key_id": keyID})
}

func (h *GuestPortalHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, guestaccess.ErrInvalidToken) {
		c.JSON(http.StatusUnauthorized, errorResponse{Error: "this link is invalid or has expired"})
		return
	}
	var actionErr *guestaccess.ActionError
	if errors.As(err, &actionErr) {
		c.JSON(http.StatusBadGateway, errorResponse{Error: actionErr.Message, Hint: actionErr.Hint})
		return
	}
	writeError(c, h.logger, err)
}

// tokenFrom prefers the body, then a bearer header, then the query string.
func tokenFrom(c *gin.Context, body string) string {
	if body != "" {
		return body
	}
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return c.Query("token")
}
