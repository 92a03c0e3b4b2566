package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/travelbooking/config"
	"github.com/Domenick1991/travelbooking/internal/bootstrap"
	"github.com/Domenick1991/travelbooking/internal/cache"
	"github.com/Domenick1991/travelbooking/internal/logger"
	"github.com/Domenick1991/travelbooking/internal/payment"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
	"github.com/Domenick1991/travelbooking/internal/service/flights"
	"github.com/Domenick1991/travelbooking/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg := logger.Must(cfg.App.Env)
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing, "travelbooking")
	if err != nil {
		lg.Fatal("set up tracing", zap.Error(err))
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			lg.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		lg.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if cfg.Database.MigrateOnStart {
		migrator, err := repository.NewMigrator(pool, lg)
		if err != nil {
			lg.Fatal("create migrator", zap.Error(err))
		}
		if err := migrator.Up(ctx); err != nil {
			lg.Fatal("apply migrations", zap.Error(err))
		}
		_ = migrator.Close()
	}

	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.FlightsCacheTTLDuration())
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		lg.Warn("redis unavailable, cache calls will fall through", zap.Error(err))
	}

	bookingService := booking.NewBookingService(
		repository.NewUnitOfWork(pool),
		booking.WithLogger(lg.Named("booking")),
		booking.WithCache(redisCache),
		booking.WithIsolation(
			repository.ParseIsolationLevel(cfg.Booking.CreateIsolation),
			repository.ParseIsolationLevel(cfg.Booking.CancelIsolation),
		),
		booking.WithPaymentMode(payment.ParseMode(cfg.Payment.Mode)),
		booking.WithHoldTTL(cfg.Booking.HoldTTL()),
		booking.WithSeatLockTTL(cfg.Booking.SeatLockTTL()),
		booking.WithRetry(cfg.Booking.Retries(), cfg.Booking.RetryBase()),
		booking.WithSweepBatch(cfg.Worker.SweepBatch),
	)
	flightService := flights.NewFlightService(repository.NewFlightRepository(pool), redisCache, lg.Named("flights"))

	if err := bootstrap.Run(ctx, cfg, flightService, bookingService, lg); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}
