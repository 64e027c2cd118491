package generic

import (
	"context"
	"time"
)

// DefaultAttempts is how many times a unit of work runs before giving up.
const DefaultAttempts = 3

// Retry runs fn until it succeeds, fails with a non-retryable error, or
// attempts are exhausted. The last error is returned unchanged.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 10 * time.Millisecond):
		}
	}
	return err
}
