package resilience

import (
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fincore-statement-engine/internal/domain/shared"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

func TestRecordFillsDefaults(t *testing.T) {
	h := NewHandler(testLogger(), nil)

	h.Record(StructuredError{
		Operation: "statement_save",
		Message:   "write timed out",
		Severity:  shared.SeverityMedium,
		Category:  shared.CategoryTransient,
	})

	recent := h.Recent(1)
	require.Len(t, recent, 1)
	assert.NotEqual(t, uuid.Nil, recent[0].ID)
	assert.False(t, recent[0].OccurredAt.IsZero())
	assert.Equal(t, "statement_save", recent[0].Operation)
}

func TestRecordEscalatesCriticalErrors(t *testing.T) {
	var escalated []StructuredError
	h := NewHandler(testLogger(), func(e StructuredError) {
		escalated = append(escalated, e)
	})

	h.Record(StructuredError{
		Operation: "statement_publish",
		Message:   "published statement is unbalanced",
		Severity:  shared.SeverityCritical,
		Category:  shared.CategoryInvariant,
	})
	h.Record(StructuredError{
		Operation: "statement_save",
		Message:   "write timed out",
		Severity:  shared.SeverityHigh,
		Category:  shared.CategoryTransient,
	})

	require.Len(t, escalated, 1)
	assert.Equal(t, "statement_publish", escalated[0].Operation)
	assert.NotEqual(t, uuid.Nil, escalated[0].ID)
}

func TestRecordCapsHistory(t *testing.T) {
	h := NewHandler(testLogger(), nil)

	for i := 0; i < errorRingCap+50; i++ {
		h.Record(StructuredError{
			Operation: "statement_load",
			Message:   fmt.Sprintf("failure %d", i),
			Severity:  shared.SeverityLow,
			Category:  shared.CategoryTransient,
		})
	}

	recent := h.Recent(0)
	require.Len(t, recent, errorRingCap)
	// newest first, oldest 50 dropped
	assert.Equal(t, fmt.Sprintf("failure %d", errorRingCap+49), recent[0].Message)
	assert.Equal(t, "failure 50", recent[len(recent)-1].Message)
}

func TestStats(t *testing.T) {
	h := NewHandler(testLogger(), nil)

	h.Record(StructuredError{Operation: "statement_save", Severity: shared.SeverityMedium, Category: shared.CategoryTransient, RetryCount: 1})
	h.Record(StructuredError{Operation: "statement_save", Severity: shared.SeverityHigh, Category: shared.CategoryTransient})
	h.Record(StructuredError{Operation: "statement_publish", Severity: shared.SeverityCritical, Category: shared.CategoryInvariant, RetryCount: 2})
	// outside the window
	h.Record(StructuredError{
		Operation:  "statement_load",
		Severity:   shared.SeverityLow,
		Category:   shared.CategoryTransient,
		OccurredAt: time.Now().Add(-2 * time.Hour),
	})

	st := h.Stats(time.Hour)

	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 2, st.ByOperation["statement_save"])
	assert.Equal(t, 1, st.ByOperation["statement_publish"])
	assert.Equal(t, 0, st.ByOperation["statement_load"])
	assert.Equal(t, 1, st.BySeverity[shared.SeverityMedium])
	assert.Equal(t, 1, st.BySeverity[shared.SeverityHigh])
	assert.Equal(t, 1, st.BySeverity[shared.SeverityCritical])
	assert.InDelta(t, 3.0/60.0, st.RatePerMinute, 0.001)
	assert.InDelta(t, 2.0/3.0, st.ResolutionRate, 0.001)
}

func TestStatsEmptyWindow(t *testing.T) {
	h := NewHandler(testLogger(), nil)

	st := h.Stats(time.Hour)

	assert.Equal(t, 0, st.Total)
	assert.Equal(t, 0.0, st.ResolutionRate)
	assert.Empty(t, st.BySeverity)
	assert.Empty(t, st.ByOperation)
}

func TestRecentLimitsAndOrders(t *testing.T) {
	h := NewHandler(testLogger(), nil)

	for i := 0; i < 5; i++ {
		h.Record(StructuredError{
			Operation: "statement_save",
			Message:   fmt.Sprintf("failure %d", i),
			Severity:  shared.SeverityLow,
			Category:  shared.CategoryTransient,
		})
	}

	recent := h.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "failure 4", recent[0].Message)
	assert.Equal(t, "failure 3", recent[1].Message)

	assert.Len(t, h.Recent(100), 5)
	assert.Len(t, h.Recent(0), 5)
}
