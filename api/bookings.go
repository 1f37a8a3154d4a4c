package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/service/booking"
	"github.com/Domenick1991/hotelaccess/internal/service/guestaccess"
	"github.com/Domenick1991/hotelaccess/internal/service/lockkey"
	"github.com/gin-gonic/gin"
)

// TokenIssuer is the part of guest access the check-in flow needs.
type TokenIssuer interface {
	IssueToken(ctx context.Context, bookingID string) (*guestaccess.IssuedToken, error)
}

type BookingHandler struct {
	bookings booking.BookingUseCase
	keys     lockkey.LockKeyUseCase
	tokens   TokenIssuer
	logger   *slog.Logger
}

type createBookingRequest struct {
	RoomTypeID string `json:"room_type_id" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	GuestName  string `json:"guest_name" binding:"required"`
	GuestEmail string `json:"guest_email" binding:"required"`
	GuestPhone string `json:"guest_phone"`
	Locale     string `json:"locale"`
}

type checkInRequest struct {
	LegalName            string   `json:"legal_name" binding:"required"`
	DocumentNumber       string   `json:"document_number" binding:"required"`
	DocumentCountry      string   `json:"document_country"`
	Services             []string `json:"services"`
	EstimatedArrivalTime string   `json:"estimated_arrival_time"`
	SpecialRequests      string   `json:"special_requests"`
}

type bookingResponse struct {
	ID              string  `json:"id"`
	ReferenceCode   string  `json:"reference_code"`
	Status          string  `json:"status"`
	RoomTypeID      string  `json:"room_type_id"`
	RoomTypeName    string  `json:"room_type_name,omitempty"`
	RoomNumber      string  `json:"room_number,omitempty"`
	GuestName       string  `json:"guest_name"`
	GuestEmail      string  `json:"guest_email"`
	GuestPhone      *string `json:"guest_phone,omitempty"`
	CheckIn         string  `json:"check_in"`
	CheckOut        string  `json:"check_out"`
	Nights          int     `json:"nights"`
	BasePriceCents  int64   `json:"base_price_cents"`
	TotalPriceCents int64   `json:"total_price_cents"`
	CheckInDone     bool    `json:"check_in_done"`
}

type lockKeyResponse struct {
	ID         string `json:"id"`
	RoomNumber string `json:"room_number,omitempty"`
	Passcode   string `json:"passcode"`
	ValidFrom  string `json:"valid_from"`
	ValidTo    string `json:"valid_to"`
	Status     string `json:"status"`
}

type checkInResponse struct {
	ReferenceCode string           `json:"reference_code"`
	Status        string           `json:"status"`
	LockKey       *lockKeyResponse `json:"lock_key,omitempty"`
	MagicLink     string           `json:"magic_link,omitempty"`
	Issue         *errorResponse   `json:"issue,omitempty"`
}

func NewBookingHandler(bookings booking.BookingUseCase, keys lockkey.LockKeyUseCase, tokens TokenIssuer, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, keys: keys, tokens: tokens, logger: loggerOrDiscard(logger)}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.create)
	router.GET("/:ref", h.lookup)
	router.POST("/:ref/check-in", h.checkIn)
	router.POST("/:ref/cancel", h.cancel)
	router.POST("/:ref/check-out", h.checkOut)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		badRequest(c, "check_in must be a date in YYYY-MM-DD format")
		return
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		badRequest(c, "check_out must be a date in YYYY-MM-DD format")
		return
	}

	b, err := h.bookings.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		RoomTypeID: req.RoomTypeID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		GuestPhone: req.GuestPhone,
		Locale:     req.Locale,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(booking.BookingDetails{Booking: *b}))
}

func (h *BookingHandler) lookup(c *gin.Context) {
	details, err := h.bookings.LookupBooking(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(*details))
}

// checkIn records the guest's details and then tries to hand out the door code.
// A failed issuance leaves the check-in recorded and is reported with 202.
func (h *BookingHandler) checkIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	ref := c.Param("ref")

	info, err := h.bookings.SubmitCheckIn(ctx, ref, booking.CheckInInput{
		LegalName:            req.LegalName,
		DocumentNumber:       req.DocumentNumber,
		DocumentCountry:      req.DocumentCountry,
		Services:             req.Services,
		EstimatedArrivalTime: req.EstimatedArrivalTime,
		SpecialRequests:      req.SpecialRequests,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	issued, err := h.keys.IssueLockKey(ctx, info.BookingID)
	if err != nil {
		h.logger.WarnContext(ctx, "check-in recorded without lock key", "booking_id", info.BookingID, "error", err)
		_, body := errorBody(err)
		c.JSON(http.StatusAccepted, checkInResponse{
			ReferenceCode: ref,
			Status:        string(domain.BookingStatusPendingCheckIn),
			Issue:         &body,
		})
		return
	}

	resp := checkInResponse{
		ReferenceCode: issued.Booking.ReferenceCode,
		Status:        string(issued.Booking.Status),
		LockKey:       toLockKeyResponse(issued.Key, issued.RoomNumber),
	}
	token, err := h.tokens.IssueToken(ctx, info.BookingID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue guest token", "booking_id", info.BookingID, "error", err)
	} else {
		resp.MagicLink = token.MagicLink
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.bookings.CancelBooking(c.Request.Context(), c.Param("ref"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(booking.BookingDetails{Booking: *b}))
}

func (h *BookingHandler) checkOut(c *gin.Context) {
	ctx := c.Request.Context()
	details, err := h.bookings.LookupBooking(ctx, c.Param("ref"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	b, err := h.bookings.CheckOut(ctx, details.Booking.ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	details.Booking = *b
	c.JSON(http.StatusOK, toBookingResponse(*details))
}

func toBookingResponse(d booking.BookingDetails) bookingResponse {
	b := d.Booking
	resp := bookingResponse{
		ID:              b.ID,
		ReferenceCode:   b.ReferenceCode,
		Status:          string(b.Status),
		RoomTypeID:      b.RoomTypeID,
		GuestName:       b.GuestName,
		GuestEmail:      b.GuestEmail,
		GuestPhone:      b.GuestPhone,
		CheckIn:         formatDate(b.CheckInDate),
		CheckOut:        formatDate(b.CheckOutDate),
		Nights:          domain.Nights(b.CheckInDate, b.CheckOutDate),
		BasePriceCents:  b.BasePriceCents,
		TotalPriceCents: b.TotalPriceCents,
		CheckInDone:     d.CheckIn != nil,
	}
	if d.RoomType != nil {
		resp.RoomTypeName = d.RoomType.Name
	}
	if d.Room != nil {
		resp.RoomNumber = d.Room.RoomNumber
	}
	return resp
}

func toLockKeyResponse(k domain.LockKey, roomNumber string) *lockKeyResponse {
	return &lockKeyResponse{
		ID:         k.ID,
		RoomNumber: roomNumber,
		Passcode:   k.Passcode,
		ValidFrom:  k.ValidFrom.Format(time.RFC3339),
		ValidTo:    k.ValidTo.Format(time.RFC3339),
		Status:     string(k.Status),
	}
}
