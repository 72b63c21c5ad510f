package service

import (
	"context"
	"time"

	"stockcast/internal/metrics"

	"github.com/cenkalti/backoff/v5"
)

// retryStorage retries transient storage failures with exponential
// backoff. tries is the total attempt budget, not the retry count.
func retryStorage[T any](ctx context.Context, tries int, op func() (T, error)) (T, error) {
	if tries <= 0 {
		tries = 1
	}
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.StorageRetries.Inc()
		}),
	)
}
