package enforce

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for the enforce package.
type Metrics struct {
	// Enforcement checks by outcome
	checks *prometheus.CounterVec

	// Violations by resource
	violations *prometheus.CounterVec

	// Limit resolutions by source tier
	resolutions *prometheus.CounterVec

	// Check latency
	checkDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates a Metrics instance registered with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ceres_enforcement_checks_total",
				Help: "Total number of enforcement checks performed",
			},
			[]string{"result"},
		),

		violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ceres_enforcement_violations_total",
				Help: "Total number of claims rejected for exceeding a limit",
			},
			[]string{"resource"},
		),

		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ceres_limit_resolutions_total",
				Help: "Total number of limit resolutions by source tier",
			},
			[]string{"source"},
		),

		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ceres_enforcement_check_duration_seconds",
				Help:    "Duration of enforcement checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15), // 100µs to 1.6s
			},
			[]string{"operation"},
		),
	}
}

// RecordCheck records an enforcement check outcome
// ("granted", "rejected", or "error").
func (m *Metrics) RecordCheck(result string) {
	m.checks.WithLabelValues(result).Inc()
}

// RecordViolation records a rejected claim for a resource.
func (m *Metrics) RecordViolation(resource string) {
	m.violations.WithLabelValues(resource).Inc()
}

// RecordResolution records a limit resolution by source tier.
func (m *Metrics) RecordResolution(source string) {
	m.resolutions.WithLabelValues(source).Inc()
}

// RecordCheckDuration records the duration of an enforcement operation.
func (m *Metrics) RecordCheckDuration(operation string, seconds float64) {
	m.checkDuration.WithLabelValues(operation).Observe(seconds)
}
