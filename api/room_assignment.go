package api

import (
	"log/slog"
	"net/http"

	"github.com/Domenick1991/hotelaccess/internal/service/allocation"
	"github.com/Domenick1991/hotelaccess/internal/service/booking"
	"github.com/gin-gonic/gin"
)

// RoomAssignmentHandler lets staff put a booking into a room ahead of key issuance
// or move it to another room type.
type RoomAssignmentHandler struct {
	bookings booking.BookingUseCase
	rooms    allocation.AllocationUseCase
	logger   *slog.Logger
}

type assignRoomRequest struct {
	RoomTypeID string `json:"room_type_id"`
}

type roomAssignmentResponse struct {
	ReferenceCode string `json:"reference_code"`
	RoomTypeID    string `json:"room_type_id"`
	RoomNumber    string `json:"room_number"`
}

func NewRoomAssignmentHandler(bookings booking.BookingUseCase, rooms allocation.AllocationUseCase, logger *slog.Logger) *RoomAssignmentHandler {
	return &RoomAssignmentHandler{bookings: bookings, rooms: rooms, logger: loggerOrDiscard(logger)}
}

func (h *RoomAssignmentHandler) Register(router *gin.RouterGroup) {
	router.POST("/:ref/room", h.assign)
}

func (h *RoomAssignmentHandler) assign(c *gin.Context) {
	var req assignRoomRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	details, err := h.bookings.LookupBooking(ctx, c.Param("ref"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	roomTypeID := req.RoomTypeID
	if roomTypeID == "" {
		roomTypeID = details.Booking.RoomTypeID
	}

	room, err := h.rooms.AllocateRoom(ctx, details.Booking.ID, roomTypeID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, roomAssignmentResponse{
		ReferenceCode: details.Booking.ReferenceCode,
		RoomTypeID:    room.RoomTypeID,
		RoomNumber:    room.RoomNumber,
	})
}
