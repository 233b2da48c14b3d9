package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincore-statement-engine/internal/domain/shared"
)

// stubSleep replaces the backoff sleep for the duration of a test and
// returns the delays Retry asked for.
func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	original := sleep
	sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleep = original })
	return &delays
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	stubSleep(t)
	h := NewHandler(testLogger(), nil)
	calls := 0

	err := h.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	}, 3, "statement_save", nil)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, h.Recent(0))
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	delays := stubSleep(t)
	h := NewHandler(testLogger(), nil)
	calls := 0

	err := h.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	}, 3, "statement_save", map[string]string{"statement_id": "s-1"})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *delays)

	recent := h.Recent(0)
	require.Len(t, recent, 2)
	for _, e := range recent {
		assert.Equal(t, shared.SeverityMedium, e.Severity)
		assert.Equal(t, shared.CategoryTransient, e.Category)
		assert.Equal(t, "s-1", e.Metadata["statement_id"])
	}
	// newest first
	assert.Equal(t, 2, recent[0].RetryCount)
	assert.Equal(t, 1, recent[1].RetryCount)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	stubSleep(t)
	h := NewHandler(testLogger(), nil)
	baseErr := errors.New("deadlock detected")
	calls := 0

	err := h.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return baseErr
	}, 2, "statement_update", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, baseErr)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)

	recent := h.Recent(0)
	require.Len(t, recent, 3)
	assert.Equal(t, shared.SeverityHigh, recent[0].Severity)
	assert.Equal(t, shared.SeverityMedium, recent[1].Severity)
	assert.Equal(t, shared.SeverityMedium, recent[2].Severity)
}

func TestRetryBackoffScheduleRepeatsLastDelay(t *testing.T) {
	delays := stubSleep(t)
	h := NewHandler(testLogger(), nil)

	_ = h.Retry(context.Background(), func(ctx context.Context) error {
		return errors.New("still failing")
	}, 6, "statement_save", nil)

	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		5 * time.Second,
		10 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}, *delays)
}

func TestRetryStopsOnCancelledContext(t *testing.T) {
	stubSleep(t)
	h := NewHandler(testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0

	err := h.Retry(ctx, func(ctx context.Context) error {
		calls++
		return nil
	}, 3, "statement_save", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestRetryStopsWhenCancelledDuringBackoff(t *testing.T) {
	stubSleep(t)
	h := NewHandler(testLogger(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := h.Retry(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("broken pipe")
	}, 3, "statement_save", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "during backoff")
	assert.Equal(t, 1, calls)
}
