package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// VerificationMetrics records the behavior of the resilient verification
// pipeline: operation latency, verdict mix, remote attempt outcomes, and how
// often the demo fallback had to stand in for the real backend.
type VerificationMetrics struct {
	duration     *prometheus.HistogramVec
	results      *prometheus.CounterVec
	attempts     *prometheus.CounterVec
	fallbacks    *prometheus.CounterVec
	availability prometheus.Gauge
}

// NewVerificationMetrics registers the verification metrics on the provided registerer.
func NewVerificationMetrics(reg prometheus.Registerer) *VerificationMetrics {
	if reg == nil {
		return &VerificationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "verification_duration_seconds",
		Help:    "Duration of verification operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_results_total",
		Help: "Verification verdicts by overall status and result source.",
	}, []string{"status", "source"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "remote_attempts_total",
		Help: "Remote attempts by operation and outcome.",
	}, []string{"operation", "outcome"})
	fallbacks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fallback_total",
		Help: "Operations resolved with synthesized demo data.",
	}, []string{"operation"})
	availability := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backend_available",
		Help: "Last observed backend availability (1 available, 0 unavailable).",
	})
	reg.MustRegister(duration, results, attempts, fallbacks, availability)
	return &VerificationMetrics{
		duration:     duration,
		results:      results,
		attempts:     attempts,
		fallbacks:    fallbacks,
		availability: availability,
	}
}

// ObserveDuration records the duration for the named operation.
func (m *VerificationMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncResult increments the verdict counter for a status/source pair.
func (m *VerificationMetrics) IncResult(status, source string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(normalizeLabel(status), normalizeLabel(source)).Inc()
}

// IncAttempt increments the remote attempt counter for an operation/outcome pair.
func (m *VerificationMetrics) IncAttempt(operation, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// IncFallback increments the fallback counter for the named operation.
func (m *VerificationMetrics) IncFallback(operation string) {
	if m == nil || m.fallbacks == nil {
		return
	}
	m.fallbacks.WithLabelValues(normalizeLabel(operation)).Inc()
}

// SetAvailability records the last observed backend availability.
func (m *VerificationMetrics) SetAvailability(available bool) {
	if m == nil || m.availability == nil {
		return
	}
	if available {
		m.availability.Set(1)
		return
	}
	m.availability.Set(0)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
