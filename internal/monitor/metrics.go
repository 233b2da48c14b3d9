package monitor

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "statement_engine_"

// Metrics mirrors monitor samples into prometheus collectors so the sample
// ring stays queryable through standard scrape tooling.
type Metrics struct {
	operations        *prometheus.CounterVec
	latency           *prometheus.HistogramVec
	thresholdBreaches *prometheus.CounterVec
}

var (
	registerOnce  sync.Once
	sharedMetrics *Metrics
)

// NewMetrics registers the monitor collectors once against the given
// registerer and returns the shared instance on subsequent calls.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	registerOnce.Do(func() {
		m := &Metrics{
			operations: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: metricPrefix + "operations_total",
					Help: "Total measured operations by name and result",
				},
				[]string{"operation", "result"},
			),
			latency: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    metricPrefix + "operation_latency_seconds",
					Help:    "Measured operation latency in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation"},
			),
			thresholdBreaches: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: metricPrefix + "threshold_breaches_total",
					Help: "Operations that exceeded their duration ceiling",
				},
				[]string{"operation"},
			),
		}
		reg.MustRegister(m.operations, m.latency, m.thresholdBreaches)
		sharedMetrics = m
	})
	return sharedMetrics
}

func (m *Metrics) observe(operation string, duration time.Duration, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) thresholdBreached(operation string) {
	m.thresholdBreaches.WithLabelValues(operation).Inc()
}
