package verification

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/veritrace/veritrace-backend/pkg/config"
	"github.com/veritrace/veritrace-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "verification-test", Level: zerolog.Disabled, Output: io.Discard})
}

type fakeProber struct {
	calls int
	err   error
}

func (f *fakeProber) Health(ctx context.Context) error {
	f.calls++
	return f.err
}

func testResilienceConfig() config.ResilienceConfig {
	return config.ResilienceConfig{
		AvailabilityTTL: 30 * time.Second,
		ProbeTimeout:    5 * time.Second,
		RequestTimeout:  5 * time.Second,
		MaxRetries:      3,
		BaseDelay:       time.Second,
	}
}

func TestProbeCachesWithinTTL(t *testing.T) {
	prober := &fakeProber{}
	oracle := NewOracle(prober, testResilienceConfig(), nil, testLogger())
	ctx := context.Background()

	if !oracle.Probe(ctx) {
		t.Fatal("expected available")
	}
	if !oracle.Probe(ctx) {
		t.Fatal("expected cached available")
	}
	if prober.calls != 1 {
		t.Fatalf("expected 1 health call, got %d", prober.calls)
	}
}

func TestProbeRefreshesAfterTTL(t *testing.T) {
	prober := &fakeProber{}
	oracle := NewOracle(prober, testResilienceConfig(), nil, testLogger())
	ctx := context.Background()

	current := time.Now()
	oracle.now = func() time.Time { return current }

	oracle.Probe(ctx)
	current = current.Add(31 * time.Second)
	oracle.Probe(ctx)

	if prober.calls != 2 {
		t.Fatalf("expected 2 health calls after TTL expiry, got %d", prober.calls)
	}
}

func TestProbeFailureMarksUnavailable(t *testing.T) {
	prober := &fakeProber{err: errors.New("connection refused")}
	oracle := NewOracle(prober, testResilienceConfig(), nil, testLogger())
	ctx := context.Background()

	if oracle.Probe(ctx) {
		t.Fatal("expected unavailable")
	}
	// cached negative verdict, no second probe
	if oracle.Probe(ctx) {
		t.Fatal("expected cached unavailable")
	}
	if prober.calls != 1 {
		t.Fatalf("expected 1 health call, got %d", prober.calls)
	}
}

func TestForceRefreshBypassesCache(t *testing.T) {
	prober := &fakeProber{}
	oracle := NewOracle(prober, testResilienceConfig(), nil, testLogger())
	ctx := context.Background()

	oracle.Probe(ctx)
	oracle.ForceRefresh(ctx)

	if prober.calls != 2 {
		t.Fatalf("expected force refresh to re-probe, got %d calls", prober.calls)
	}
}

func TestMarkUnavailableShortCircuitsProbe(t *testing.T) {
	prober := &fakeProber{}
	oracle := NewOracle(prober, testResilienceConfig(), nil, testLogger())
	ctx := context.Background()

	oracle.MarkUnavailable()
	if oracle.Probe(ctx) {
		t.Fatal("expected unavailable after mark")
	}
	if prober.calls != 0 {
		t.Fatalf("expected no health call, got %d", prober.calls)
	}
}

func TestMarkAvailableRestoresWithoutProbe(t *testing.T) {
	prober := &fakeProber{err: errors.New("down")}
	oracle := NewOracle(prober, testResilienceConfig(), nil, testLogger())
	ctx := context.Background()

	oracle.Probe(ctx)
	oracle.MarkAvailable()
	if !oracle.Probe(ctx) {
		t.Fatal("expected available after mark")
	}
	if prober.calls != 1 {
		t.Fatalf("expected no extra health call, got %d", prober.calls)
	}
}
