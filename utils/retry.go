package utils

import (
	"context"
	"fmt"
	"time"
)

// Retry runs fn up to maxRetries times, stopping at the first success.
// Between attempts it waits 2s, 4s, 8s... and gives up early when ctx ends.
func Retry(ctx context.Context, maxRetries int, fn func() error) error {
	return retry(ctx, maxRetries, time.Second, fn)
}

func retry(ctx context.Context, maxRetries int, base time.Duration, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < maxRetries {
			wait := base * time.Duration(1<<uint(attempt))
			Warn("Attempt %d/%d failed: %v, retrying in %v", attempt, maxRetries, lastErr, wait)
			if err := Sleep(ctx, wait); err != nil {
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt, lastErr)
			}
		}
	}

	return fmt.Errorf("all %d attempts failed, last error: %w", maxRetries, lastErr)
}
