package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/fincore-statement-engine/internal/domain/shared"
)

// backoffSchedule holds the delays between retry attempts. The last delay
// repeats when attempts outnumber schedule entries.
var backoffSchedule = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
}

// sleep is swapped out in tests to avoid real backoff waits
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry executes op up to maxAttempts+1 times, sleeping per the backoff
// schedule between attempts. Each retry is recorded as a medium-severity
// error carrying attempt and delay detail. When every attempt fails, one
// high-severity error is recorded and the last underlying failure is
// returned; callers must not swallow it.
func (h *Handler) Retry(ctx context.Context, op func(ctx context.Context) error, maxAttempts int, name string, metadata map[string]string) error {
	var lastErr error

	for attempt := 0; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry of %s cancelled: %w", name, err)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		delay := backoffSchedule[min(attempt, len(backoffSchedule)-1)]
		h.Record(StructuredError{
			Operation:  name,
			Message:    fmt.Sprintf("attempt %d failed, retrying in %s: %v", attempt+1, delay, lastErr),
			Severity:   shared.SeverityMedium,
			Category:   shared.CategoryTransient,
			RetryCount: attempt + 1,
			Metadata:   metadata,
		})

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry of %s cancelled during backoff: %w", name, err)
		}
	}

	h.Record(StructuredError{
		Operation:  name,
		Message:    fmt.Sprintf("all %d attempts failed: %v", maxAttempts+1, lastErr),
		Severity:   shared.SeverityHigh,
		Category:   shared.CategoryTransient,
		RetryCount: maxAttempts,
		Metadata:   metadata,
	})
	return fmt.Errorf("operation %s failed after %d attempts: %w", name, maxAttempts+1, lastErr)
}
