package crawl

import (
	"context"
	"time"
)

// DefaultRetryDelays returns the backoff delays for launching a browser
// session: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// RetryFunc is called after each failed attempt before waiting.
type RetryFunc func(attempt int, err error)

// retry calls fn until it succeeds, waiting delays[i] before attempt i+2.
// It gives up after len(delays)+1 attempts and returns the last error.
func retry(ctx context.Context, delays []time.Duration, fn func() error, onRetry RetryFunc) error {
	maxAttempts := len(delays) + 1

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= maxAttempts-1 {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if onRetry != nil {
			onRetry(attempt+2, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delays[attempt]):
		}
	}

	return lastErr
}
