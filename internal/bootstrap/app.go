package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Domenick1991/hotelaccess/config"
	"github.com/Domenick1991/hotelaccess/internal/cache"
	"github.com/Domenick1991/hotelaccess/internal/domain"
	"github.com/Domenick1991/hotelaccess/internal/kafka"
	"github.com/Domenick1991/hotelaccess/internal/lockprovider"
	"github.com/Domenick1991/hotelaccess/internal/notification"
	"github.com/Domenick1991/hotelaccess/internal/refcode"
	"github.com/Domenick1991/hotelaccess/internal/repository"
	"github.com/Domenick1991/hotelaccess/internal/repository/memory"
	"github.com/Domenick1991/hotelaccess/internal/service/allocation"
	"github.com/Domenick1991/hotelaccess/internal/service/booking"
	"github.com/Domenick1991/hotelaccess/internal/service/guestaccess"
	"github.com/Domenick1991/hotelaccess/internal/service/lockkey"
	"github.com/Domenick1991/hotelaccess/internal/service/rooms"
	"github.com/jackc/pgx/v5/pgxpool"
)

// App holds the services both processes share.
type App struct {
	Store       repository.Store
	Publisher   domain.Publisher
	Bookings    *booking.BookingService
	LockKeys    *lockkey.LockKeyService
	GuestAccess *guestaccess.GuestAccessService
	Rooms       *rooms.RoomService
	Allocation  *allocation.AllocationService

	closers []func() error
}

// NewApp connects the store, cache, broker and lock provider named in cfg and
// builds the services on top of them. Close releases what it opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	house, err := houseTimes(cfg.Hotel)
	if err != nil {
		return nil, err
	}

	if app.Store, err = app.openStore(ctx, cfg.Database, cfg.Booking.TxAttempts, logger); err != nil {
		return nil, err
	}

	provider, err := newProvider(cfg.Lock)
	if err != nil {
		return nil, err
	}

	var (
		roomCache rooms.RoomTypeCache
		keyOpts   []lockkey.LockKeyServiceOption
	)
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.RoomTypesCacheTTL)*time.Second)
		app.closers = append(app.closers, redisCache.Close)
		if err := redisCache.Ping(ctx); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		roomCache = redisCache
		keyOpts = append(keyOpts, lockkey.WithIssuanceGuard(redisCache, time.Duration(cfg.Booking.IssuanceGuardTTLSecond)*time.Second))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, logger)
		app.closers = append(app.closers, producer.Close)
		app.Publisher = kafka.NewEventPublisher(producer, cfg.Kafka.EventsTopic, cfg.Kafka.NotificationsTopic)
	} else {
		logger.Warn("no kafka brokers configured, notifications are logged in-process")
		app.Publisher = notification.NewDispatcher(notification.NewLogSender(logger), logger)
	}

	timeout := time.Duration(cfg.Lock.TimeoutSeconds) * time.Second
	app.LockKeys = lockkey.NewLockKeyService(app.Store, provider, append(keyOpts,
		lockkey.WithPublisher(app.Publisher),
		lockkey.WithHouseTimes(house),
		lockkey.WithProviderTimeout(timeout),
		lockkey.WithLogger(logger.With("service", "lockkey")),
	)...)

	app.Bookings = booking.NewBookingService(app.Store, refcode.NewGenerator(cfg.Booking.ReferenceCodeAttempts),
		booking.WithRevoker(app.LockKeys),
		booking.WithPublisher(app.Publisher),
		booking.WithHouseTimes(house),
		booking.WithLogger(logger.With("service", "booking")),
	)

	app.GuestAccess, err = guestaccess.NewGuestAccessService(app.Store, provider, cfg.GuestToken.Secret,
		guestaccess.WithPortalBaseURL(cfg.GuestToken.PortalBaseURL),
		guestaccess.WithPublisher(app.Publisher),
		guestaccess.WithHouseTimes(house),
		guestaccess.WithProviderTimeout(timeout),
		guestaccess.WithLogger(logger.With("service", "guestaccess")),
	)
	if err != nil {
		return nil, err
	}

	app.Rooms = rooms.NewRoomService(app.Store, roomCache, house, logger.With("service", "rooms"))
	app.Allocation = allocation.NewAllocationService(app.Store, logger.With("service", "allocation"))

	ok = true
	return app, nil
}

// Close runs the registered closers in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) openStore(ctx context.Context, cfg config.DatabaseConfig, txAttempts int, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		SeedDemoInventory(store)
		return store, nil
	case "", "postgres":
		pool, err := pgxpool.New(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := pool.Ping(ctx); err != nil {
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if cfg.ApplySchema {
			if err := repository.ApplySchema(ctx, pool); err != nil {
				return nil, err
			}
		}
		return repository.NewPGStore(pool, txAttempts), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newProvider(cfg config.LockConfig) (lockprovider.Provider, error) {
	switch cfg.Driver {
	case "fake":
		return lockprovider.NewFake(), nil
	case "", "ttlock":
		client, err := lockprovider.NewTTLockClient(lockprovider.Config{
			BaseURL:      cfg.BaseURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Username:     cfg.Username,
			Password:     cfg.Password,
			Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		}, &http.Client{})
		if err != nil {
			return nil, fmt.Errorf("configure ttlock: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown lock driver %q", cfg.Driver)
	}
}

func houseTimes(cfg config.HotelConfig) (domain.HouseTimes, error) {
	loc, err := cfg.Location()
	if err != nil {
		return domain.HouseTimes{}, fmt.Errorf("hotel timezone: %w", err)
	}
	checkIn, err := cfg.CheckIn()
	if err != nil {
		return domain.HouseTimes{}, fmt.Errorf("hotel check-in time: %w", err)
	}
	checkOut, err := cfg.CheckOut()
	if err != nil {
		return domain.HouseTimes{}, fmt.Errorf("hotel check-out time: %w", err)
	}
	return domain.HouseTimes{Location: loc, CheckIn: checkIn, CheckOut: checkOut}, nil
}
