package utils

import (
	"context"
	"math/rand"
	"time"
)

// RandomDelay sleeps for a random duration in [min, max).
func RandomDelay(ctx context.Context, min, max time.Duration) error {
	return Sleep(ctx, RandomDuration(min, max))
}

func RandomDuration(min, max time.Duration) time.Duration {
	diff := max - min
	if diff <= 0 {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(diff)))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
