package verification

import (
	"context"
	"sync"
	"time"

	"github.com/veritrace/veritrace-backend/pkg/config"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/metrics"
)

type availabilityState int

const (
	stateUnknown availabilityState = iota
	stateAvailable
	stateUnavailable
)

// HealthProber answers whether the remote notary backend is reachable.
type HealthProber interface {
	Health(ctx context.Context) error
}

// Oracle tracks remote availability behind a time-bounded cache so concurrent
// callers share one verdict instead of each issuing their own health probe.
// One instance is wired per process; the shared cache is the point.
type Oracle struct {
	mu          sync.Mutex
	state       availabilityState
	lastChecked time.Time

	prober       HealthProber
	ttl          time.Duration
	probeTimeout time.Duration
	now          func() time.Time

	metrics *metrics.VerificationMetrics
	logg    *logger.Logger
}

// NewOracle builds an oracle starting in the unknown state.
func NewOracle(prober HealthProber, cfg config.ResilienceConfig, m *metrics.VerificationMetrics, logg *logger.Logger) *Oracle {
	ttl := cfg.AvailabilityTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Oracle{
		state:        stateUnknown,
		prober:       prober,
		ttl:          ttl,
		probeTimeout: probeTimeout,
		now:          time.Now,
		metrics:      m,
		logg:         logg,
	}
}

// Probe returns the cached verdict when it is fresh, otherwise issues one
// bounded health request and caches the result.
func (o *Oracle) Probe(ctx context.Context) bool {
	o.mu.Lock()
	if o.state != stateUnknown && o.now().Sub(o.lastChecked) < o.ttl {
		cached := o.state == stateAvailable
		o.mu.Unlock()
		return cached
	}
	o.mu.Unlock()

	probeCtx, cancel := context.WithTimeout(ctx, o.probeTimeout)
	defer cancel()
	err := o.prober.Health(probeCtx)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.lastChecked = o.now()
	if err != nil {
		o.state = stateUnavailable
		o.metrics.SetAvailability(false)
		if o.logg != nil {
			o.logg.Warn(ctx, "backend health probe failed")
		}
		return false
	}
	o.state = stateAvailable
	o.metrics.SetAvailability(true)
	return true
}

// ForceRefresh discards the cached verdict and probes again.
func (o *Oracle) ForceRefresh(ctx context.Context) bool {
	o.mu.Lock()
	o.lastChecked = time.Time{}
	o.state = stateUnknown
	o.mu.Unlock()
	return o.Probe(ctx)
}

// MarkUnavailable flips the verdict without probing. Callers use it after a
// failed real request so subsequent operations fall back immediately until the
// cache window expires.
func (o *Oracle) MarkUnavailable() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = stateUnavailable
	o.lastChecked = o.now()
	o.metrics.SetAvailability(false)
}

// MarkAvailable flips the verdict without probing, used after a successful
// real request.
func (o *Oracle) MarkAvailable() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = stateAvailable
	o.lastChecked = o.now()
	o.metrics.SetAvailability(true)
}
