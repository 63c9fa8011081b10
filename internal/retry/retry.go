package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	initialInterval = 50 * time.Millisecond
	maxInterval     = 500 * time.Millisecond
)

// Do runs op until it succeeds, returns a permanent error, exhausts attempts
// or ctx is done. Only idempotent store round-trips should go through here.
func Do[T any](ctx context.Context, attempts uint, op func(ctx context.Context) (T, error)) (T, error) {
	if attempts == 0 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.MaxInterval = maxInterval

	return backoff.Retry(ctx, func() (T, error) {
		return op(ctx)
	}, backoff.WithBackOff(b), backoff.WithMaxTries(attempts))
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
