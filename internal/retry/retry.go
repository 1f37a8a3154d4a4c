// Package retry runs an operation a bounded number of times.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is wrapped into the error returned when every attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

type Policy struct {
	MaxAttempts int
	// Backoff before attempt n (n >= 1) is Backoff << (n-1). Zero disables waiting.
	Backoff time.Duration
	// Retryable decides whether a failed attempt may be repeated. Nil retries every error.
	Retryable func(error) bool
}

// Do calls fn until it succeeds, returns a non-retryable error, the context is done,
// or MaxAttempts calls were made. The attempt number passed to fn starts at 0.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 && p.Backoff > 0 {
			timer := time.NewTimer(p.Backoff << (attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
