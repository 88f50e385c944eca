package adapter

import (
	"context"
	"fmt"
	"time"
)

// retryBase is the first backoff delay; it doubles per attempt.
const retryBase = 500 * time.Millisecond

// Retry runs fn up to attempts times, sleeping retryBase, 2x, 4x...
// between tries. A nil result stops the loop; so does an error that
// permanent reports true for, or a canceled context.
func Retry(ctx context.Context, attempts int, permanent func(error) bool, fn func(context.Context) error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context canceled: %w", err)
		}
		if i > 0 {
			delay := time.Duration(1<<uint(i-1)) * retryBase
			select {
			case <-ctx.Done():
				return fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
