package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health      *HealthHandler
	Bookings    *BookingHandler
	LockKeys    *LockKeyHandler
	GuestPortal *GuestPortalHandler
	Rooms       *RoomHandler
	Assignment  *RoomAssignmentHandler
}

func NewRouter(h Handlers, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(loggerOrDiscard(logger)))

	h.Health.Register(router)
	v1 := router.Group("/api/v1")
	bookings := v1.Group("/bookings")
	h.Bookings.Register(bookings)
	h.Assignment.Register(bookings)
	h.LockKeys.Register(v1.Group("/lock-keys"))
	h.GuestPortal.Register(v1.Group("/guest-portal"))
	h.Rooms.Register(v1)
	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.InfoContext(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
