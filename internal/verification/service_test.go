package verification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	product "github.com/veritrace/veritrace-backend/internal/products"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/hedera"
	"github.com/veritrace/veritrace-backend/pkg/prooflink"
)

type fakeRegistry struct {
	created   *product.ProductDTO
	createErr error
	byBatch   *product.ProductDTO
	getErr    error
	stats     *product.Stats
	statsErr  error
}

func (f *fakeRegistry) CreateProduct(ctx context.Context, input product.CreateProductInput) (*product.ProductDTO, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeRegistry) GetByBatchID(ctx context.Context, batchID string) (*product.ProductDTO, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byBatch, nil
}

func (f *fakeRegistry) Stats(ctx context.Context) (*product.Stats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.stats, nil
}

type fakeLedger struct {
	records map[string]*hedera.ConsensusRecord
	errs    map[string]error
	calls   int
}

func (f *fakeLedger) Confirm(ctx context.Context, transactionID string) (*hedera.ConsensusRecord, error) {
	f.calls++
	if err, ok := f.errs[transactionID]; ok {
		return nil, err
	}
	if record, ok := f.records[transactionID]; ok {
		return record, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found on mirror node")
}

func newServiceForTest(prober *fakeProber, registry *fakeRegistry, ledger *fakeLedger) *Service {
	logg := testLogger()
	oracle := NewOracle(prober, testResilienceConfig(), nil, logg)
	exec := NewExecutor(oracle, testResilienceConfig(), nil, logg)
	exec.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	links := prooflink.NewBuilder(enums.NetworkTestnet)
	synth := NewSynthesizer(links)
	return NewService(registry, ledger, exec, synth, links, "0.0.5005", Options{}, logg)
}

func notarizedClaimWithTx(txID string) product.ClaimDTO {
	claim := notarizedClaim()
	claim.HCSTransactionID = &txID
	return claim
}

func testProductDTO(claims ...product.ClaimDTO) *product.ProductDTO {
	return &product.ProductDTO{
		ID:           uuid.New(),
		BatchID:      "COFFEE-1714000000000-A1B2C3",
		ProductName:  "Coffee Beans",
		SupplierName: "Highland Farms",
		Claims:       claims,
	}
}

func settledRecord(txID string) *hedera.ConsensusRecord {
	return &hedera.ConsensusRecord{
		TransactionID:      txID,
		ConsensusTimestamp: "1714000000.000000001",
		Result:             "SUCCESS",
	}
}

func TestVerifyProductBackendVerified(t *testing.T) {
	first := notarizedClaimWithTx("0.0.4821@1714000000.000000001")
	second := notarizedClaimWithTx("0.0.4821@1714000000.000000002")
	registry := &fakeRegistry{byBatch: testProductDTO(first, second, plainClaim())}
	ledger := &fakeLedger{records: map[string]*hedera.ConsensusRecord{
		*first.HCSTransactionID:  settledRecord(*first.HCSTransactionID),
		*second.HCSTransactionID: settledRecord(*second.HCSTransactionID),
	}}
	svc := newServiceForTest(&fakeProber{}, registry, ledger)

	result, err := svc.VerifyProduct(context.Background(), "COFFEE-1714000000000-A1B2C3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != enums.SourceBackend {
		t.Fatalf("expected backend source, got %s", result.Source)
	}
	if result.Aggregated.OverallStatus != enums.StatusVerified {
		t.Fatalf("expected verified, got %s", result.Aggregated.OverallStatus)
	}
	if result.Aggregated.ClaimsWithLedgerData != 2 || result.Aggregated.TotalClaims != 3 {
		t.Fatalf("unexpected counts %+v", result.Aggregated)
	}
	if len(result.Outcomes) != 2 {
		t.Fatalf("expected outcomes only for ledger-backed claims, got %d", len(result.Outcomes))
	}
	for _, outcome := range result.Outcomes {
		if !outcome.Verified {
			t.Fatalf("expected verified outcome, got %+v", outcome)
		}
		if outcome.ProofLinks == nil || !strings.Contains(outcome.ProofLinks.Transaction, "/testnet/") {
			t.Fatalf("expected testnet proof links, got %+v", outcome.ProofLinks)
		}
	}
}

func TestVerifyProductIsolatesConfirmationFailures(t *testing.T) {
	first := notarizedClaimWithTx("0.0.4821@1714000000.000000001")
	second := notarizedClaimWithTx("0.0.4821@1714000000.000000002")
	registry := &fakeRegistry{byBatch: testProductDTO(first, second)}
	ledger := &fakeLedger{
		records: map[string]*hedera.ConsensusRecord{
			*first.HCSTransactionID: settledRecord(*first.HCSTransactionID),
		},
		errs: map[string]error{
			*second.HCSTransactionID: pkgerrors.New(pkgerrors.CodeDependency, "mirror unavailable"),
		},
	}
	svc := newServiceForTest(&fakeProber{}, registry, ledger)

	result, err := svc.VerifyProduct(context.Background(), "COFFEE-1714000000000-A1B2C3")
	if err != nil {
		t.Fatalf("one failed confirmation must not fail the request: %v", err)
	}
	if result.Aggregated.OverallStatus != enums.StatusPartiallyVerified {
		t.Fatalf("expected partially_verified, got %s", result.Aggregated.OverallStatus)
	}

	var failed *Outcome
	for i := range result.Outcomes {
		if result.Outcomes[i].Error != "" {
			failed = &result.Outcomes[i]
		}
	}
	if failed == nil || failed.Verified {
		t.Fatalf("expected one failed outcome, got %+v", result.Outcomes)
	}
}

func TestVerifyProductNotFoundSurfaces(t *testing.T) {
	registry := &fakeRegistry{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "product not found")}
	svc := newServiceForTest(&fakeProber{}, registry, &fakeLedger{})

	_, err := svc.VerifyProduct(context.Background(), "NOPE-1-XXXXXX")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestVerifyProductEmptyBatchID(t *testing.T) {
	svc := newServiceForTest(&fakeProber{}, &fakeRegistry{}, &fakeLedger{})

	_, err := svc.VerifyProduct(context.Background(), "   ")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVerifyProductDegradesToDemoWhenBackendDown(t *testing.T) {
	registry := &fakeRegistry{getErr: pkgerrors.New(pkgerrors.CodeDependency, "should not be called")}
	ledger := &fakeLedger{}
	svc := newServiceForTest(&fakeProber{err: errors.New("down")}, registry, ledger)

	result, err := svc.VerifyProduct(context.Background(), "COFFEE-2024-1001")
	if err != nil {
		t.Fatalf("fallback path must resolve: %v", err)
	}
	if result.Source != enums.SourceDemo {
		t.Fatalf("expected demo source, got %s", result.Source)
	}
	if result.Product.BatchID != "COFFEE-2024-1001" {
		t.Fatalf("expected curated demo product, got %s", result.Product.BatchID)
	}
	if result.Aggregated.OverallStatus != enums.StatusVerified {
		t.Fatalf("curated demo must aggregate verified, got %s", result.Aggregated.OverallStatus)
	}
	if ledger.calls != 0 {
		t.Fatalf("expected no ledger calls in demo mode, got %d", ledger.calls)
	}
}

func TestSubmitProductBackend(t *testing.T) {
	created := testProductDTO()
	registry := &fakeRegistry{created: created}
	svc := newServiceForTest(&fakeProber{}, registry, &fakeLedger{})

	result, err := svc.SubmitProduct(context.Background(), product.CreateProductInput{
		ProductName:  "Coffee Beans",
		SupplierName: "Highland Farms",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != enums.SourceBackend {
		t.Fatalf("expected backend source, got %s", result.Source)
	}
	if result.Product.BatchID != created.BatchID {
		t.Fatalf("unexpected product %+v", result.Product)
	}
}

func TestSubmitProductValidationSurfaces(t *testing.T) {
	registry := &fakeRegistry{createErr: pkgerrors.New(pkgerrors.CodeValidation, "product name is required")}
	svc := newServiceForTest(&fakeProber{}, registry, &fakeLedger{})

	_, err := svc.SubmitProduct(context.Background(), product.CreateProductInput{})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitProductDegradesToDemoWhenBackendDown(t *testing.T) {
	registry := &fakeRegistry{createErr: pkgerrors.New(pkgerrors.CodeDependency, "should not be called")}
	svc := newServiceForTest(&fakeProber{err: errors.New("down")}, registry, &fakeLedger{})

	input := product.CreateProductInput{
		ProductName:  "Olive Oil",
		SupplierName: "Grove Estates",
		Claims:       []product.ClaimInput{{ClaimType: "organic", ClaimDescription: "certified"}},
	}
	result, err := svc.SubmitProduct(context.Background(), input)
	if err != nil {
		t.Fatalf("fallback path must resolve: %v", err)
	}
	if result.Source != enums.SourceDemo {
		t.Fatalf("expected demo source, got %s", result.Source)
	}
	if result.Product.ProductName != "Olive Oil" {
		t.Fatalf("expected echoed input, got %+v", result.Product)
	}
	if len(result.Product.Claims) != 1 || !result.Product.Claims[0].Notarized {
		t.Fatalf("expected notarized fallback claim, got %+v", result.Product.Claims)
	}
}

func TestStatsPropagatesErrors(t *testing.T) {
	registry := &fakeRegistry{statsErr: pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	svc := newServiceForTest(&fakeProber{}, registry, &fakeLedger{})

	if _, err := svc.Stats(context.Background()); err == nil {
		t.Fatal("expected stats error to propagate")
	}
}

func TestStatsPassthrough(t *testing.T) {
	registry := &fakeRegistry{stats: &product.Stats{TotalProducts: 3, TotalClaims: 7, NotarizedClaims: 5}}
	svc := newServiceForTest(&fakeProber{}, registry, &fakeLedger{})

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalProducts != 3 || stats.NotarizedClaims != 5 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
