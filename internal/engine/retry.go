package engine

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/roach88/wishrank/internal/store"
)

// Retry defaults for transient store failures.
const (
	DefaultMaxRetries = 5
	DefaultRetryBase  = 10 * time.Millisecond
)

// withRetry runs fn with Fibonacci backoff. Only failures classified by
// store.IsTransient are retried; fn must therefore be a whole transaction.
func (e *Engine) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(e.maxRetries, retry.NewFibonacci(e.retryBase))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if store.IsTransient(err) {
			e.logger.Debug("retrying transient store failure", "op", op, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}
