package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_Exhausted(t *testing.T) {
	cause := errors.New("timeout")
	calls := 0
	err := retry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return cause
	})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
	assert.Equal(t, 2, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retry(ctx, 5, time.Hour, func() error {
		calls++
		return errors.New("down")
	})

	assert.Contains(t, err.Error(), "retry aborted after 1 attempts")
	assert.Equal(t, 1, calls)
}

func TestRandomDuration(t *testing.T) {
	assert.Equal(t, time.Second, RandomDuration(time.Second, time.Second))
	assert.Equal(t, time.Second, RandomDuration(time.Second, time.Millisecond))

	for i := 0; i < 100; i++ {
		d := RandomDuration(10*time.Millisecond, 20*time.Millisecond)
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 20*time.Millisecond)
	}
}

func TestSleep_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
