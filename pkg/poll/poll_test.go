package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_ReadyOnThirdAttempt(t *testing.T) {
	var calls []time.Time
	attempt := func(ctx context.Context, n int) (bool, int, error) {
		calls = append(calls, time.Now())
		if n < 3 {
			return false, 3000, nil
		}
		return true, 1000, nil
	}

	interval := 20 * time.Millisecond
	n, err := Until(context.Background(), Options{Interval: interval}, attempt)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	require.Len(t, calls, 3)

	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].Sub(calls[i-1]), interval, "gap before attempt %d", i+1)
	}
}

func TestUntil_ErrorStopsImmediately(t *testing.T) {
	boom := errors.New("decode failed")
	attempts := 0
	_, err := Until(context.Background(), Options{Interval: time.Millisecond}, func(ctx context.Context, n int) (bool, int, error) {
		attempts++
		return false, 0, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
}

func TestUntil_MaxAttempts(t *testing.T) {
	attempts := 0
	start := time.Now()
	n, err := Until(context.Background(), Options{Interval: 10 * time.Millisecond, MaxAttempts: 2}, func(ctx context.Context, n int) (bool, int, error) {
		attempts++
		return false, 2000, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, attempts)
	// One sleep between the two attempts, none after the last
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	var exhausted *AttemptsExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2000, exhausted.LastCode)
	assert.Contains(t, exhausted.Error(), "2 attempts")
}

func TestUntil_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := Until(ctx, Options{Interval: time.Hour}, func(ctx context.Context, n int) (bool, int, error) {
		return false, 3000, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
