package api

import (
	"log/slog"
	"net/http"

	"github.com/Domenick1991/hotelaccess/internal/service/rooms"
	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	service rooms.RoomUseCase
	logger  *slog.Logger
}

type availabilityRequest struct {
	CheckIn  string `json:"check_in" binding:"required"`
	CheckOut string `json:"check_out" binding:"required"`
	Guests   int    `json:"guests"`
}

type roomTypeResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	BasePriceCents int64  `json:"base_price_cents"`
	MaxOccupancy   int    `json:"max_occupancy"`
}

type serviceResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Unit        string `json:"unit"`
	PriceCents  int64  `json:"price_cents"`
}

type availabilityResponse struct {
	roomTypeResponse
	FreeRooms       int   `json:"free_rooms"`
	Nights          int   `json:"nights"`
	TotalPriceCents int64 `json:"total_price_cents"`
}

func NewRoomHandler(service rooms.RoomUseCase, logger *slog.Logger) *RoomHandler {
	return &RoomHandler{service: service, logger: loggerOrDiscard(logger)}
}

func (h *RoomHandler) Register(router *gin.RouterGroup) {
	router.POST("/rooms/availability", h.availability)
	router.GET("/room-types/:id", h.roomType)
	router.GET("/services", h.services)
}

func (h *RoomHandler) availability(c *gin.Context) {
	var req availabilityRequest
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
	if req.Guests == 0 {
		req.Guests = 1
	}

	list, err := h.service.ListAvailableRoomTypes(c.Request.Context(), checkIn, checkOut, req.Guests)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp := make([]availabilityResponse, 0, len(list))
	for _, a := range list {
		resp = append(resp, availabilityResponse{
			roomTypeResponse: roomTypeResponse{
				ID:             a.RoomType.ID,
				Name:           a.RoomType.Name,
				Description:    a.RoomType.Description,
				BasePriceCents: a.RoomType.BasePriceCents,
				MaxOccupancy:   a.RoomType.MaxOccupancy,
			},
			FreeRooms:       a.FreeRooms,
			Nights:          a.Nights,
			TotalPriceCents: a.TotalPrice,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (h *RoomHandler) roomType(c *gin.Context) {
	t, err := h.service.GetRoomType(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, roomTypeResponse{
		ID:             t.ID,
		Name:           t.Name,
		Description:    t.Description,
		BasePriceCents: t.BasePriceCents,
		MaxOccupancy:   t.MaxOccupancy,
	})
}

func (h *RoomHandler) services(c *gin.Context) {
	list, err := h.service.ListAdditionalServices(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp := make([]serviceResponse, 0, len(list))
	for _, s := range list {
		resp = append(resp, serviceResponse{
			ID:          s.ID,
			Code:        s.Code,
			Name:        s.Name,
			Description: s.Description,
			Unit:        s.Unit,
			PriceCents:  s.PriceCents,
		})
	}
	c.JSON(http.StatusOK, gin.H{"services": resp})
}
