package verification

import (
	"context"
	"errors"
	"time"

	"github.com/veritrace/veritrace-backend/pkg/config"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/metrics"
)

// Result is a tagged outcome: Data is always populated, Source records its
// provenance, and Err carries the degraded-mode cause when Source is demo.
type Result[T any] struct {
	Data   T
	Source enums.ResultSource
	Err    error
}

// Degraded reports whether the result was synthesized instead of served by
// the real backend.
func (r Result[T]) Degraded() bool {
	return r.Source == enums.SourceDemo
}

// Executor runs remote operations with bounded retries, exponential backoff,
// and fallback substitution when the backend is unreachable.
type Executor struct {
	oracle     *Oracle
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error

	metrics *metrics.VerificationMetrics
	logg    *logger.Logger
}

// NewExecutor wires an executor against the shared availability oracle.
func NewExecutor(oracle *Oracle, cfg config.ResilienceConfig, m *metrics.VerificationMetrics, logg *logger.Logger) *Executor {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 3
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &Executor{
		oracle:     oracle,
		timeout:    timeout,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      sleepWithContext,
		metrics:    m,
		logg:       logg,
	}
}

// Execute runs op with the executor's retry policy.
//
// With a fallback supplied the call always resolves: an unreachable backend
// (cached or discovered) yields the fallback tagged demo, with Err recording
// the last failure. Without a fallback the real attempt is forced and terminal
// or exhausted errors propagate to the caller.
func Execute[T any](ctx context.Context, e *Executor, operation string, op func(ctx context.Context) (T, error), fallback *T) (Result[T], error) {
	ctx = e.logg.WithOperation(ctx, operation)

	if !e.oracle.Probe(ctx) && fallback != nil {
		e.metrics.IncFallback(operation)
		e.logg.Warn(ctx, "backend unavailable, serving fallback")
		return Result[T]{Data: *fallback, Source: enums.SourceDemo}, nil
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := e.baseDelay * (1 << (attempt - 1))
			if err := e.sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
		data, err := op(attemptCtx)
		cancel()

		if err == nil {
			e.metrics.IncAttempt(operation, "success")
			e.oracle.MarkAvailable()
			return Result[T]{Data: data, Source: enums.SourceBackend}, nil
		}
		lastErr = err

		if !retryable(err) {
			e.metrics.IncAttempt(operation, "terminal")
			if fallback != nil {
				e.metrics.IncFallback(operation)
				e.logg.Error(ctx, "terminal failure, serving fallback", err)
				return Result[T]{Data: *fallback, Source: enums.SourceDemo, Err: err}, nil
			}
			return Result[T]{}, err
		}
		e.metrics.IncAttempt(operation, "retryable")
		e.logg.Warn(ctx, "retryable failure on remote operation")
	}

	e.oracle.MarkUnavailable()
	if fallback != nil {
		e.metrics.IncFallback(operation)
		e.logg.Error(ctx, "retries exhausted, serving fallback", lastErr)
		return Result[T]{Data: *fallback, Source: enums.SourceDemo, Err: lastErr}, nil
	}
	return Result[T]{}, lastErr
}

// retryable classifies failures. Coded errors carry their own retry flag;
// everything else (raw transport failures, deadline hits) is assumed
// transient.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if typed := pkgerrors.As(err); typed != nil {
		return pkgerrors.IsRetryable(err)
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
