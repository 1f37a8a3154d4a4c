package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/hotelaccess/config"
	"github.com/Domenick1991/hotelaccess/internal/bootstrap"
	"github.com/Domenick1991/hotelaccess/internal/kafka"
	"github.com/Domenick1991/hotelaccess/internal/notification"
	"github.com/robfig/cron/v3"
)

const defaultSweepSchedule = "@every 5m"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("process", "worker")
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

	schedule := cfg.Worker.ExpirySweepSchedule
	if schedule == "" {
		schedule = defaultSweepSchedule
	}
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(schedule, func() {
		expired, err := app.LockKeys.ExpireOldLockKeys(ctx)
		if err != nil {
			logger.Error("expire lock keys", "error", err)
			return
		}
		if len(expired) > 0 {
			logger.Info("expired lock keys", "count", len(expired))
		}
	}); err != nil {
		logger.Error("schedule expiry sweep", "schedule", schedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.NotificationsTopic != "" {
		dispatcher := notification.NewDispatcher(notification.NewLogSender(logger), logger)
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, logger)
		defer consumer.Close()

		go func() {
			if err := consumer.ConsumeEvents(ctx, dispatcher.Dispatch); err != nil {
				logger.Error("consumer stopped", "error", err)
				stop()
			}
		}()
	}

	logger.Info("worker started", "expiry_sweep", schedule)
	<-ctx.Done()
	logger.Info("shutting down worker")
}
