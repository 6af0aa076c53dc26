package scheduler

import (
	"context"
	"time"
)

// withRetry runs fn up to maxRetries+1 times with a fixed delay between
// attempts. It returns the number of attempts made and the last error, or
// nil on the first success. The sleep is context-aware; cancellation during
// the delay surfaces ctx.Err().
func withRetry(ctx context.Context, maxRetries int, delay time.Duration, fn func(context.Context) error) (int, error) {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt + 1, nil
		}
		if attempt >= maxRetries {
			return attempt + 1, err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt + 1, ctx.Err()
		case <-timer.C:
		}
	}
}
