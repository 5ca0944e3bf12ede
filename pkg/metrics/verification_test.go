package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestVerificationMetricsExports(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewVerificationMetrics(reg)

	metrics.ObserveDuration("verify", 250*time.Millisecond)
	metrics.IncResult("verified", "backend")
	metrics.IncAttempt("verify", "retryable")
	metrics.IncAttempt("verify", "retryable")
	metrics.IncFallback("verify")
	metrics.SetAvailability(false)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "verification_results_total", "status", "verified"); err != nil {
		t.Fatalf("fetch results: %v", err)
	} else if got != 1 {
		t.Fatalf("expected results=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "remote_attempts_total", "outcome", "retryable"); err != nil {
		t.Fatalf("fetch attempts: %v", err)
	} else if got != 2 {
		t.Fatalf("expected attempts=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "fallback_total", "operation", "verify"); err != nil {
		t.Fatalf("fetch fallbacks: %v", err)
	} else if got != 1 {
		t.Fatalf("expected fallbacks=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "verification_duration_seconds", "operation", "verify"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}

	if mf := findMetricFamily(mfs, "backend_available"); mf == nil {
		t.Fatal("backend_available gauge not exported")
	} else if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 0 {
		t.Fatalf("expected availability 0, got %f", got)
	}
}

func TestNilReceiverIsNoop(t *testing.T) {
	var metrics *VerificationMetrics
	metrics.ObserveDuration("verify", time.Second)
	metrics.IncResult("verified", "backend")
	metrics.IncAttempt("verify", "success")
	metrics.IncFallback("verify")
	metrics.SetAvailability(true)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
