package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/hotelaccess/api"
	"github.com/Domenick1991/hotelaccess/config"
	"github.com/Domenick1991/hotelaccess/internal/bootstrap"
	"github.com/gin-gonic/gin"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("process", "app")
	slog.SetDefault(logger)

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("build application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Handlers{
		Health:      api.NewHealthHandler(app.Store),
		Bookings:    api.NewBookingHandler(app.Bookings, app.LockKeys, app.GuestAccess, logger),
		LockKeys:    api.NewLockKeyHandler(app.LockKeys, logger),
		GuestPortal: api.NewGuestPortalHandler(app.GuestAccess, logger),
		Rooms:       api.NewRoomHandler(app.Rooms, logger),
		Assignment:  api.NewRoomAssignmentHandler(app.Bookings, app.Allocation, logger),
	}, logger)

	if err := bootstrap.Run(ctx, cfg, router, logger); err != nil {
		logger.Error("server error", "error", err)
		app.Close()
		os.Exit(1)
	}
}
