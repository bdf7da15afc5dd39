package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/srgjo27/seat_reservation/internal/adapter/catalog"
	"github.com/srgjo27/seat_reservation/internal/adapter/handler"
	"github.com/srgjo27/seat_reservation/internal/adapter/lock/redislock"
	"github.com/srgjo27/seat_reservation/internal/adapter/messaging/rabbitmq"
	"github.com/srgjo27/seat_reservation/internal/adapter/repository/memory"
	"github.com/srgjo27/seat_reservation/internal/adapter/repository/postgres"
	"github.com/srgjo27/seat_reservation/internal/config"
	"github.com/srgjo27/seat_reservation/internal/core/ports"
	"github.com/srgjo27/seat_reservation/internal/core/services"
	"github.com/srgjo27/seat_reservation/internal/platform/database"
	"github.com/srgjo27/seat_reservation/internal/platform/logger"
	"github.com/srgjo27/seat_reservation/internal/platform/redis"
)

type storage struct {
	locker   ports.Locker
	uow      ports.UnitOfWork
	seats    ports.SeatRepository
	bookings ports.BookingRepository
	closers  []func() error
}

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to initialise storage")
		return err
	}
	defer func() {
		for _, c := range st.closers {
			if err := c(); err != nil {
				log.Warn().Err(err).Msg("close failed")
			}
		}
	}()

	opts := []services.BookingServiceOption{
		services.WithLogger(log),
		services.WithLockLease(cfg.LockLease),
		services.WithShowtimeLocks(cfg.LockScope == config.LockScopeShowtime),
	}
	if cfg.RabbitMQURL != "" {
		pub := rabbitmq.NewPublisher(cfg.RabbitMQURL)
		st.closers = append(st.closers, pub.Close)
		opts = append(opts, services.WithPublisher(pub))
		log.Info().Msg("booking events enabled")
	}

	bookingService := services.NewBookingService(
		st.locker,
		st.uow,
		catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout),
		st.seats,
		st.bookings,
		opts...,
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger(log))
	handler.NewBookingHandler(bookingService).Register(e)

	e.Server.ReadTimeout = 5 * time.Second
	e.Server.WriteTimeout = 10 * time.Second
	e.Server.IdleTimeout = 120 * time.Second

	err = serve(ctx, e, ":"+cfg.Port, log)
	if err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server exited")
	return err
}

// serve runs e until ctx is done or the listener fails, then shuts it down.
// It always returns so deferred cleanup in main runs.
func serve(ctx context.Context, e *echo.Echo, addr string, log zerolog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	case err, ok := <-serverErr:
		if ok {
			runErr = fmt.Errorf("server startup failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("server forced to shutdown: %w", err)
	}
	return runErr
}

func openStorage(ctx context.Context, cfg config.Config, log zerolog.Logger) (*storage, error) {
	if cfg.StorageDriver == "memory" {
		log.Warn().Msg("using in-memory storage; seat inventory starts empty")
		store := memory.NewStore()
		return &storage{
			locker:   memory.NewLocker(),
			uow:      memory.NewUnitOfWork(store),
			seats:    memory.NewSeatRepository(store, cfg.HoldWindow),
			bookings: memory.NewBookingRepository(store),
		}, nil
	}

	db, err := database.NewPostgresDB(ctx, database.Config{
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		DBName:       cfg.DB.Name,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	}, log)
	if err != nil {
		return nil, err
	}

	rdb, err := redis.NewClient(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &storage{
		locker:   redislock.New(rdb),
		uow:      postgres.NewUnitOfWork(db),
		seats:    postgres.NewSeatRepository(db, cfg.HoldWindow),
		bookings: postgres.NewBookingRepository(db),
		closers:  []func() error{rdb.Close, db.Close},
	}, nil
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Warn()
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}
