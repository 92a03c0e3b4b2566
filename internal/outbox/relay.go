// Package outbox relays events written by the booking transactions to the
// broker. Events are published in insertion order and marked afterwards, so
// delivery is at least once.
package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type Publisher interface {
	Publish(ctx context.Context, ev domain.OutboxEvent) error
}

type Config struct {
	Interval        time.Duration
	BatchSize       int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type Relay struct {
	uow       repository.UnitOfWork
	publisher Publisher
	breaker   *gobreaker.CircuitBreaker[struct{}]
	logger    *zap.Logger
	interval  time.Duration
	batch     int
}

func NewRelay(uow repository.UnitOfWork, publisher Publisher, cfg Config, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	failures := cfg.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "outbox-publisher",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &Relay{
		uow:       uow,
		publisher: publisher,
		breaker:   breaker,
		logger:    logger,
		interval:  cfg.Interval,
		batch:     cfg.BatchSize,
	}
}

func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := r.RelayOnce(ctx)
			switch {
			case errors.Is(err, gobreaker.ErrOpenState):
				r.logger.Debug("outbox relay paused, broker circuit open")
			case err != nil:
				r.logger.Error("outbox relay failed", zap.Int("published", n), zap.Error(err))
			case n > 0:
				r.logger.Info("outbox events published", zap.Int("count", n))
			}
		case <-ctx.Done():
			return
		}
	}
}

// RelayOnce publishes one batch. It stops at the first failure so later
// events of the same reservation never overtake earlier ones; everything
// published up to that point stays marked.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	tx, err := r.uow.Begin(ctx, repository.ReadCommitted)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	events, err := tx.Outbox().ListUnpublished(ctx, r.batch)
	if err != nil {
		return 0, err
	}

	published := 0
	var publishErr error
	for _, ev := range events {
		_, err := r.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, r.publisher.Publish(ctx, ev)
		})
		if err != nil {
			publishErr = err
			break
		}
		if err := tx.Outbox().MarkPublished(ctx, ev.ID); err != nil {
			publishErr = err
			break
		}
		published++
	}

	if published > 0 {
		if err := tx.Commit(ctx); err != nil {
			return 0, err
		}
	}
	return published, publishErr
}

func (r *Relay) State() gobreaker.State {
	return r.breaker.State()
}
