// Package retry wraps fallible operations with bounded retries and fixed or
// exponential backoff. Only errors the fault package classifies as retryable
// are re-attempted; configuration and validation failures surface immediately.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/contentsmith/pipewright/internal/fault"
)

// Policy configures retry behaviour.
type Policy struct {
	// MaxRetries is the number of re-attempts after the first try, so an
	// operation is invoked at most MaxRetries+1 times.
	MaxRetries int
	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration
	// Exponential doubles the delay on every retry (BaseDelay * 2^attempt);
	// when false every wait is BaseDelay.
	Exponential bool
	// Sleep is injectable for tests. Nil means a context-aware real sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the wait before retrying after the given zero-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if !p.Exponential {
		return p.BaseDelay
	}
	return p.BaseDelay * (1 << attempt)
}

// Operation is a fallible, idempotent-safe unit of work. Only wrap
// operations whose repeated execution is acceptable.
type Operation[T any] func(ctx context.Context) (T, error)

// Do runs op under the policy. On a retryable error it waits the backoff
// delay and re-attempts; after the budget is exhausted the last error is
// returned. Cancellation during the wait aborts with the context's error.
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, op Operation[T]) (T, error) {
	var zero T
	sleep := p.Sleep
	if sleep == nil {
		sleep = wait
	}

	var lastErr error
	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		out, err := op(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if !fault.IsRetryable(err) {
			return zero, err
		}
		if attempt == p.MaxRetries {
			break
		}

		delay := p.Delay(attempt)
		if logger != nil {
			logger.Warn("attempt failed, retrying",
				"attempt", attempt+1,
				"max_attempts", p.MaxRetries+1,
				"delay", delay,
				"error", err)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	if logger != nil {
		logger.Error("all attempts failed", "attempts", p.MaxRetries+1, "error", lastErr)
	}
	return zero, lastErr
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
