package booking

import (
	"context"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// withRetry reruns fn while it fails with a retryable conflict. Every
// attempt is a fresh transaction.
func (s *BookingService) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	if s.maxRetries == 0 {
		return fn(ctx)
	}
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(s.retryBase))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && domain.IsRetryable(err) {
			s.logger.Warn("transaction conflict, retrying",
				zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		return err
	})
}
