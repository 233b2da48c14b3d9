// Package monitor records per-operation performance samples in a bounded
// ring and serves summary and percentile reports over the most recent
// window. Threshold breaches raise non-fatal alerts and never block the
// measured operation.
package monitor

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// ringCap bounds the retained sample history; the oldest samples are
	// dropped first.
	ringCap = 10_000
	// reportWindow is how many recent samples a report covers
	reportWindow = 1_000
)

// DefaultThresholds are the per-operation-kind duration ceilings
var DefaultThresholds = map[string]time.Duration{
	"generation": 30 * time.Second,
	"validation": 10 * time.Second,
	"export":     60 * time.Second,
	"storage":    5 * time.Second,
}

// Alert describes one threshold breach
type Alert struct {
	Operation string
	Duration  time.Duration
	Threshold time.Duration
	At        time.Time
}

// AlertFunc receives threshold breaches. It must not block.
type AlertFunc func(Alert)

// Token links a Start call to its End call
type Token struct {
	id        uuid.UUID
	operation string
	startedAt time.Time
}

// Outcome carries the result of a measured operation
type Outcome struct {
	Success          bool
	Err              error
	RecordsProcessed int
	CacheHits        int
	CacheMisses      int
	Metadata         map[string]string
}

type sample struct {
	operation        string
	duration         time.Duration
	success          bool
	errText          string
	recordsProcessed int
	cacheHits        int
	cacheMisses      int
	endedAt          time.Time
}

// Monitor is a thread-safe performance sample recorder
type Monitor struct {
	mu         sync.Mutex
	samples    []sample // ring: oldest first, capped at ringCap
	thresholds map[string]time.Duration
	onAlert    AlertFunc
	logger     *slog.Logger
	metrics    *Metrics
}

// Option configures a Monitor
type Option func(*Monitor)

// WithThresholds overrides the per-operation duration ceilings
func WithThresholds(t map[string]time.Duration) Option {
	return func(m *Monitor) { m.thresholds = t }
}

// WithAlertFunc installs an alert callback invoked on threshold breaches
func WithAlertFunc(f AlertFunc) Option {
	return func(m *Monitor) { m.onAlert = f }
}

// WithMetrics mirrors samples into prometheus collectors
func WithMetrics(metrics *Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics }
}

// New creates a performance monitor
func New(logger *slog.Logger, opts ...Option) *Monitor {
	m := &Monitor{
		thresholds: DefaultThresholds,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins measuring an operation and returns the token End expects
func (m *Monitor) Start(operation string) Token {
	return Token{
		id:        uuid.New(),
		operation: operation,
		startedAt: time.Now(),
	}
}

// End records the sample for a started operation. A duration over the
// operation kind's threshold raises an alert via log and callback; the
// measured operation itself is never blocked or failed.
func (m *Monitor) End(token Token, outcome Outcome) {
	now := time.Now()
	duration := now.Sub(token.startedAt)

	s := sample{
		operation:        token.operation,
		duration:         duration,
		success:          outcome.Success,
		recordsProcessed: outcome.RecordsProcessed,
		cacheHits:        outcome.CacheHits,
		cacheMisses:      outcome.CacheMisses,
		endedAt:          now,
	}
	if outcome.Err != nil {
		s.errText = outcome.Err.Error()
	}

	m.mu.Lock()
	m.samples = append(m.samples, s)
	if len(m.samples) > ringCap {
		m.samples = m.samples[len(m.samples)-ringCap:]
	}
	threshold, hasThreshold := m.thresholds[token.operation]
	onAlert := m.onAlert
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.observe(token.operation, duration, outcome.Success)
	}

	if hasThreshold && duration > threshold {
		m.logger.Warn("operation exceeded duration threshold",
			"operation", token.operation,
			"duration", duration,
			"threshold", threshold,
		)
		if m.metrics != nil {
			m.metrics.thresholdBreached(token.operation)
		}
		if onAlert != nil {
			onAlert(Alert{
				Operation: token.operation,
				Duration:  duration,
				Threshold: threshold,
				At:        now,
			})
		}
	}
}

// Report summarizes the most recent samples
type Report struct {
	SampleCount      int                    `json:"sample_count"`
	SuccessRate      float64                `json:"success_rate"`
	MeanLatency      time.Duration          `json:"mean_latency"`
	ThroughputPerMin float64                `json:"throughput_per_min"`
	CacheEfficiency  float64                `json:"cache_efficiency"`
	Operations       map[string]OpBreakdown `json:"operations"`
	RecentFailures   []FailureReport        `json:"recent_failures"`
	GeneratedAt      time.Time              `json:"generated_at"`
}

// OpBreakdown summarizes one operation's samples
type OpBreakdown struct {
	Count       int           `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	MinLatency  time.Duration `json:"min_latency"`
	MeanLatency time.Duration `json:"mean_latency"`
	MaxLatency  time.Duration `json:"max_latency"`
	P95Latency  time.Duration `json:"p95_latency"`
}

// FailureReport is one failed sample
type FailureReport struct {
	Operation string        `json:"operation"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	EndedAt   time.Time     `json:"ended_at"`
}

// Report computes the summary over the most recent samples, at most
// reportWindow of them. maxFailures bounds the failure list.
func (m *Monitor) Report(maxFailures int) Report {
	m.mu.Lock()
	window := m.samples
	if len(window) > reportWindow {
		window = window[len(window)-reportWindow:]
	}
	// copy so computation runs outside the lock
	samples := make([]sample, len(window))
	copy(samples, window)
	m.mu.Unlock()

	report := Report{
		SampleCount: len(samples),
		Operations:  make(map[string]OpBreakdown),
		GeneratedAt: time.Now().UTC(),
	}
	if len(samples) == 0 {
		return report
	}

	var succeeded int
	var totalLatency time.Duration
	var hits, misses int
	byOp := make(map[string][]sample)

	for _, s := range samples {
		if s.success {
			succeeded++
		}
		totalLatency += s.duration
		hits += s.cacheHits
		misses += s.cacheMisses
		byOp[s.operation] = append(byOp[s.operation], s)
	}

	report.SuccessRate = 100 * float64(succeeded) / float64(len(samples))
	report.MeanLatency = totalLatency / time.Duration(len(samples))
	if hits+misses > 0 {
		report.CacheEfficiency = 100 * float64(hits) / float64(hits+misses)
	}

	span := samples[len(samples)-1].endedAt.Sub(samples[0].endedAt)
	if span > 0 {
		report.ThroughputPerMin = float64(len(samples)) / float64(span.Milliseconds()) * 60_000
	}

	for op, ss := range byOp {
		report.Operations[op] = breakdown(ss)
	}

	for i := len(samples) - 1; i >= 0 && len(report.RecentFailures) < maxFailures; i-- {
		if !samples[i].success {
			report.RecentFailures = append(report.RecentFailures, FailureReport{
				Operation: samples[i].operation,
				Error:     samples[i].errText,
				Duration:  samples[i].duration,
				EndedAt:   samples[i].endedAt,
			})
		}
	}
	return report
}

func breakdown(samples []sample) OpBreakdown {
	b := OpBreakdown{Count: len(samples)}

	durations := make([]time.Duration, len(samples))
	var succeeded int
	var total time.Duration
	for i, s := range samples {
		durations[i] = s.duration
		total += s.duration
		if s.success {
			succeeded++
		}
	}
	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })

	b.SuccessRate = 100 * float64(succeeded) / float64(len(samples))
	b.MinLatency = durations[0]
	b.MaxLatency = durations[len(durations)-1]
	b.MeanLatency = total / time.Duration(len(samples))

	// p95 is the value at floor(0.95*n) in the sorted array, clamped
	idx := int(0.95 * float64(len(durations)))
	if idx >= len(durations) {
		idx = len(durations) - 1
	}
	b.P95Latency = durations[idx]
	return b
}
