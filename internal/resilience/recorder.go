// Package resilience records structured operational errors, escalates
// critical failures, and executes retryable operations with exponential
// backoff.
package resilience

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fincore-statement-engine/internal/domain/shared"
)

// errorRingCap bounds retained error history; oldest entries drop first
const errorRingCap = 1_000

// StructuredError is one recorded operational failure
type StructuredError struct {
	ID         uuid.UUID            `json:"id"`
	Operation  string               `json:"operation"`
	Message    string               `json:"message"`
	Severity   shared.ErrorSeverity `json:"severity"`
	Category   shared.ErrorCategory `json:"category"`
	RetryCount int                  `json:"retry_count"`
	Metadata   map[string]string    `json:"metadata,omitempty"`
	OccurredAt time.Time            `json:"occurred_at"`
}

// EscalateFunc receives critical errors the moment they are recorded. The
// hook is injectable so escalation stays a caller decision, not a hardcoded
// side effect.
type EscalateFunc func(StructuredError)

// Handler is a thread-safe structured error recorder
type Handler struct {
	mu       sync.Mutex
	errors   []StructuredError // ring: oldest first, capped at errorRingCap
	escalate EscalateFunc
	logger   *slog.Logger
}

// NewHandler creates an error handler. escalate may be nil.
func NewHandler(logger *slog.Logger, escalate EscalateFunc) *Handler {
	return &Handler{
		logger:   logger,
		escalate: escalate,
	}
}

// Record appends a structured error to the ring. Critical severity triggers
// the escalation hook immediately, before Record returns.
func (h *Handler) Record(e StructuredError) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	h.mu.Lock()
	h.errors = append(h.errors, e)
	if len(h.errors) > errorRingCap {
		h.errors = h.errors[len(h.errors)-errorRingCap:]
	}
	escalate := h.escalate
	h.mu.Unlock()

	h.logger.Error("operational error recorded",
		"operation", e.Operation,
		"severity", string(e.Severity),
		"category", string(e.Category),
		"retry_count", e.RetryCount,
		"message", e.Message,
	)

	if e.Severity == shared.SeverityCritical && escalate != nil {
		escalate(e)
	}
}

// Stats buckets recorded errors over a trailing time window
type Stats struct {
	Total          int                          `json:"total"`
	BySeverity     map[shared.ErrorSeverity]int `json:"by_severity"`
	ByOperation    map[string]int               `json:"by_operation"`
	RatePerMinute  float64                      `json:"rate_per_minute"`
	ResolutionRate float64                      `json:"resolution_rate"`
}

// Stats summarizes errors recorded within the trailing window. The
// resolution rate is the fraction of errors that carried a nonzero retry
// count.
func (h *Handler) Stats(window time.Duration) Stats {
	cutoff := time.Now().Add(-window)

	h.mu.Lock()
	defer h.mu.Unlock()

	st := Stats{
		BySeverity:  make(map[shared.ErrorSeverity]int),
		ByOperation: make(map[string]int),
	}
	retried := 0
	for _, e := range h.errors {
		if e.OccurredAt.Before(cutoff) {
			continue
		}
		st.Total++
		st.BySeverity[e.Severity]++
		st.ByOperation[e.Operation]++
		if e.RetryCount > 0 {
			retried++
		}
	}
	if window > 0 {
		st.RatePerMinute = float64(st.Total) / window.Minutes()
	}
	if st.Total > 0 {
		st.ResolutionRate = float64(retried) / float64(st.Total)
	}
	return st
}

// Recent returns up to limit most recent recorded errors, newest first
func (h *Handler) Recent(limit int) []StructuredError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.errors) {
		limit = len(h.errors)
	}
	out := make([]StructuredError, 0, limit)
	for i := len(h.errors) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.errors[i])
	}
	return out
}
