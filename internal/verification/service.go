package verification

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	product "github.com/veritrace/veritrace-backend/internal/products"
	"github.com/veritrace/veritrace-backend/pkg/db"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/hedera"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/metrics"
	"github.com/veritrace/veritrace-backend/pkg/outbox"
	"github.com/veritrace/veritrace-backend/pkg/prooflink"
	"github.com/veritrace/veritrace-backend/pkg/redis"
)

// verificationsCounter names the redis counter tracking public verifications.
const verificationsCounter = "verifications"

// ledgerConfirmer is the slice of the Hedera gateway the verify path needs.
type ledgerConfirmer interface {
	Confirm(ctx context.Context, transactionID string) (*hedera.ConsensusRecord, error)
}

// counterStore is the slice of the redis client used for best-effort counters.
type counterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	CounterKey(name string) string
}

// SubmitResult is the submit surface's resolved payload.
type SubmitResult struct {
	Product product.ProductDTO `json:"product"`
	Source  enums.ResultSource `json:"source"`
	Error   string             `json:"error,omitempty"`
}

// VerifyResult is the verify surface's resolved payload.
type VerifyResult struct {
	VerificationData
	Source     enums.ResultSource `json:"source"`
	Error      string             `json:"error,omitempty"`
	DurationMS int64              `json:"duration_ms"`
}

// Service is the resilient verification surface: every operation runs through
// the availability oracle and retry executor, degrading to synthesized demo
// data instead of failing when the backing services are unreachable.
type Service struct {
	products product.Service
	ledger   ledgerConfirmer
	exec     *Executor
	synth    *Synthesizer
	links    *prooflink.Builder
	topicID  string

	dbc      *db.Client
	outbox   *outbox.Service
	counters counterStore

	metrics *metrics.VerificationMetrics
	logg    *logger.Logger
}

// Options carries the optional collaborators.
type Options struct {
	DB       *db.Client
	Outbox   *outbox.Service
	Counters *redis.Client
	Metrics  *metrics.VerificationMetrics
}

// NewService wires the verification surface.
func NewService(
	products product.Service,
	ledger ledgerConfirmer,
	exec *Executor,
	synth *Synthesizer,
	links *prooflink.Builder,
	topicID string,
	opts Options,
	logg *logger.Logger,
) *Service {
	s := &Service{
		products: products,
		ledger:   ledger,
		exec:     exec,
		synth:    synth,
		links:    links,
		topicID:  topicID,
		dbc:      opts.DB,
		outbox:   opts.Outbox,
		metrics:  opts.Metrics,
		logg:     logg,
	}
	if opts.Counters != nil {
		s.counters = opts.Counters
	}
	return s
}

// SubmitProduct registers a product through the resilient executor. When the
// registry cannot be reached the caller gets an echoed demo payload tagged
// accordingly, never an empty error page.
func (s *Service) SubmitProduct(ctx context.Context, input product.CreateProductInput) (*SubmitResult, error) {
	start := time.Now()
	fallback := *s.synth.SubmissionFallback(input)

	op := func(ctx context.Context) (product.ProductDTO, error) {
		dto, err := s.products.CreateProduct(ctx, input)
		if err != nil {
			return product.ProductDTO{}, err
		}
		return *dto, nil
	}

	res, err := Execute(ctx, s.exec, "submit", op, &fallback)
	if err != nil {
		return nil, err
	}
	if clientErr := clientError(res.Err); clientErr != nil {
		return nil, clientErr
	}

	s.metrics.ObserveDuration("submit", time.Since(start))
	return &SubmitResult{
		Product: res.Data,
		Source:  res.Source,
		Error:   errorMessage(res.Err),
	}, nil
}

// VerifyProduct loads a product by batch ID, confirms each ledger-backed
// claim, and aggregates the outcomes into one verdict. Unknown batch IDs
// surface as not-found; an unreachable backend degrades to demo data.
func (s *Service) VerifyProduct(ctx context.Context, batchID string) (*VerifyResult, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id is required")
	}
	ctx = s.logg.WithBatchID(ctx, batchID)

	start := time.Now()
	fallback := *s.synth.VerificationFallback(batchID)

	op := func(ctx context.Context) (VerificationData, error) {
		dto, err := s.products.GetByBatchID(ctx, batchID)
		if err != nil {
			return VerificationData{}, err
		}
		outcomes := s.confirmClaims(ctx, dto.Claims)
		return VerificationData{
			Product:    *dto,
			Outcomes:   outcomes,
			Aggregated: Aggregate(dto.Claims, outcomes),
		}, nil
	}

	res, err := Execute(ctx, s.exec, "verify", op, &fallback)
	if err != nil {
		return nil, err
	}
	if clientErr := clientError(res.Err); clientErr != nil {
		return nil, clientErr
	}

	duration := time.Since(start)
	result := &VerifyResult{
		VerificationData: res.Data,
		Source:           res.Source,
		Error:            errorMessage(res.Err),
		DurationMS:       duration.Milliseconds(),
	}

	s.metrics.ObserveDuration("verify", duration)
	s.metrics.IncResult(string(result.Aggregated.OverallStatus), string(result.Source))
	s.recordVerification(ctx, result)
	return result, nil
}

// Stats aggregates registry totals. No safe synthetic substitute exists for
// totals, so errors propagate instead of degrading.
func (s *Service) Stats(ctx context.Context) (*product.Stats, error) {
	op := func(ctx context.Context) (product.Stats, error) {
		stats, err := s.products.Stats(ctx)
		if err != nil {
			return product.Stats{}, err
		}
		return *stats, nil
	}
	res, err := Execute(ctx, s.exec, "stats", op, nil)
	if err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// confirmClaims asks the ledger about every claim carrying a transaction ID.
// One claim's confirmation failure is isolated into its own outcome.
func (s *Service) confirmClaims(ctx context.Context, claims []product.ClaimDTO) []Outcome {
	outcomes := make([]Outcome, 0, len(claims))
	for _, claim := range claims {
		if !claim.Notarized || claim.HCSTransactionID == nil {
			continue
		}
		txID := *claim.HCSTransactionID
		outcome := Outcome{
			ClaimID:       claim.ID,
			TransactionID: txID,
		}
		if s.links != nil {
			links := s.links.Build(txID, s.topicID)
			outcome.ProofLinks = &links
		}

		record, err := s.ledger.Confirm(ctx, txID)
		if err != nil {
			outcome.Error = err.Error()
			s.logg.Warn(ctx, "claim confirmation failed")
		} else {
			outcome.Verified = record.Settled()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// recordVerification queues the analytics fact for the completed request.
// Best-effort: analytics must never fail a verification response.
func (s *Service) recordVerification(ctx context.Context, result *VerifyResult) {
	if s.counters != nil {
		if _, err := s.counters.Incr(ctx, s.counters.CounterKey(verificationsCounter)); err != nil {
			s.logg.Warn(ctx, "verification counter increment failed")
		}
	}
	if s.dbc == nil || s.outbox == nil {
		return
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventVerificationCompleted,
		AggregateType: enums.AggregateProduct,
		AggregateID:   result.Product.ID,
		Data: outbox.VerificationCompletedEvent{
			BatchID:       result.Product.BatchID,
			OverallStatus: result.Aggregated.OverallStatus,
			Source:        result.Source,
			DurationMS:    result.DurationMS,
			OccurredAt:    time.Now().UTC(),
		},
	}
	err := s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		s.logg.Error(ctx, "queueing verification analytics event failed", err)
	}
}

// clientError returns the error when the degraded result was caused by a
// caller mistake rather than backend trouble. Bad input and missing products
// surface as proper HTTP errors instead of being papered over with demo data.
func clientError(err error) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return nil
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeConflict:
		return typed
	default:
		return nil
	}
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
