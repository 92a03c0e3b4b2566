package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Domenick1991/travelbooking/config"
	"github.com/Domenick1991/travelbooking/internal/cache"
	"github.com/Domenick1991/travelbooking/internal/email"
	"github.com/Domenick1991/travelbooking/internal/kafka"
	"github.com/Domenick1991/travelbooking/internal/logger"
	"github.com/Domenick1991/travelbooking/internal/outbox"
	"github.com/Domenick1991/travelbooking/internal/payment"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/Domenick1991/travelbooking/internal/service/booking"
	"github.com/Domenick1991/travelbooking/internal/telemetry"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// The worker relays outbox events to Kafka, sends notification emails and
// expires pending reservations whose hold ran out.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg := logger.Must(cfg.App.Env)
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing, "travelbooking-worker")
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

	uow := repository.NewUnitOfWork(pool)
	redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.FlightsCacheTTLDuration())
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ReservationsTopic, lg.Named("producer"))
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		lg.Warn("kafka unavailable at startup", zap.Error(err))
	}

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.NotificationsGroup, cfg.Kafka.ReservationsTopic, lg.Named("consumer"))
	defer consumer.Close()
	notifier := email.NewNotifier(email.NewSender(lg.Named("email")), lg.Named("notifier"))

	relay := outbox.NewRelay(uow, producer, outbox.Config{
		Interval:        cfg.Outbox.PollInterval(),
		BatchSize:       cfg.Outbox.BatchSize,
		BreakerFailures: cfg.Outbox.BreakerFailures,
		BreakerTimeout:  cfg.Outbox.BreakerTimeout(),
	}, lg.Named("outbox"))

	bookingService := booking.NewBookingService(
		uow,
		booking.WithLogger(lg.Named("booking")),
		booking.WithCache(redisCache),
		booking.WithIsolation(
			repository.ParseIsolationLevel(cfg.Booking.CreateIsolation),
			repository.ParseIsolationLevel(cfg.Booking.CancelIsolation),
		),
		booking.WithPaymentMode(payment.ParseMode(cfg.Payment.Mode)),
		booking.WithRetry(cfg.Booking.Retries(), cfg.Booking.RetryBase()),
		booking.WithSweepBatch(cfg.Worker.SweepBatch),
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := consumer.Consume(ctx, notifier.Handle); err != nil {
			lg.Error("consumer stopped", zap.Error(err))
		}
	}()
	go func() {
		defer wg.Done()
		sweepExpired(ctx, bookingService, cfg.Worker.SweepInterval(), lg)
	}()

	lg.Info("worker started")
	<-ctx.Done()
	wg.Wait()
	lg.Info("worker stopped")
}

func sweepExpired(ctx context.Context, svc booking.BookingUseCase, interval time.Duration, lg *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := svc.ExpirePendingReservations(ctx)
			if err != nil {
				lg.Error("expire reservations", zap.Error(err))
				continue
			}
			if len(expired) > 0 {
				lg.Info("expired reservations", zap.Int("count", len(expired)))
			}
		}
	}
}
