package verification

import (
	"reflect"
	"testing"

	"github.com/google/uuid"

	product "github.com/veritrace/veritrace-backend/internal/products"
	"github.com/veritrace/veritrace-backend/pkg/enums"
)

func notarizedClaim() product.ClaimDTO {
	txID := "0.0.4821@1714000000.000000001"
	ts := "1714000000.000000001"
	return product.ClaimDTO{
		ID:               uuid.New(),
		ClaimType:        "organic",
		ClaimDescription: "certified",
		HCSTransactionID: &txID,
		HCSTimestamp:     &ts,
		Notarized:        true,
	}
}

func plainClaim() product.ClaimDTO {
	return product.ClaimDTO{
		ID:               uuid.New(),
		ClaimType:        "origin",
		ClaimDescription: "single estate",
	}
}

func TestAggregateStatuses(t *testing.T) {
	tests := []struct {
		name       string
		claims     []product.ClaimDTO
		outcomes   []Outcome
		wantStatus enums.OverallStatus
		wantPct    int
	}{
		{
			name:       "no claims",
			claims:     nil,
			outcomes:   nil,
			wantStatus: enums.StatusNoClaims,
			wantPct:    0,
		},
		{
			name:       "no blockchain data",
			claims:     []product.ClaimDTO{plainClaim(), plainClaim()},
			outcomes:   nil,
			wantStatus: enums.StatusNoBlockchainData,
			wantPct:    0,
		},
		{
			name:   "all ledger claims verified",
			claims: []product.ClaimDTO{notarizedClaim(), notarizedClaim(), plainClaim()},
			outcomes: []Outcome{
				{Verified: true},
				{Verified: true},
			},
			wantStatus: enums.StatusVerified,
			wantPct:    67,
		},
		{
			name:   "partially verified",
			claims: []product.ClaimDTO{notarizedClaim(), notarizedClaim()},
			outcomes: []Outcome{
				{Verified: true},
				{Verified: false, Error: "mirror returned INVALID_TOPIC_ID"},
			},
			wantStatus: enums.StatusPartiallyVerified,
			wantPct:    50,
		},
		{
			name:   "unverified",
			claims: []product.ClaimDTO{plainClaim(), notarizedClaim()},
			outcomes: []Outcome{
				{Verified: false, Error: "confirmation failed"},
			},
			wantStatus: enums.StatusUnverified,
			wantPct:    0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			agg := Aggregate(tc.claims, tc.outcomes)
			if agg.OverallStatus != tc.wantStatus {
				t.Fatalf("expected status %s, got %s", tc.wantStatus, agg.OverallStatus)
			}
			if agg.VerificationPercentage != tc.wantPct {
				t.Fatalf("expected percentage %d, got %d", tc.wantPct, agg.VerificationPercentage)
			}
			if agg.VerificationPercentage < 0 || agg.VerificationPercentage > 100 {
				t.Fatalf("percentage out of range: %d", agg.VerificationPercentage)
			}
		})
	}
}

// Outcomes must be ignored for the status decision when no claim carries
// ledger data.
func TestAggregatePrecedenceIgnoresOutcomesWithoutLedgerData(t *testing.T) {
	claims := []product.ClaimDTO{plainClaim(), plainClaim(), plainClaim()}
	outcomes := []Outcome{
		{Verified: true},
		{Verified: true},
		{Verified: true},
	}

	agg := Aggregate(claims, outcomes)
	if agg.OverallStatus != enums.StatusNoBlockchainData {
		t.Fatalf("expected no_blockchain_data, got %s", agg.OverallStatus)
	}
	if agg.ClaimsWithLedgerData != 0 {
		t.Fatalf("expected 0 ledger claims, got %d", agg.ClaimsWithLedgerData)
	}
}

func TestAggregateCounts(t *testing.T) {
	claims := []product.ClaimDTO{notarizedClaim(), notarizedClaim(), plainClaim()}
	outcomes := []Outcome{{Verified: true}, {Verified: true}}

	agg := Aggregate(claims, outcomes)
	if agg.TotalClaims != 3 {
		t.Fatalf("expected 3 total claims, got %d", agg.TotalClaims)
	}
	if agg.ClaimsWithLedgerData != 2 {
		t.Fatalf("expected 2 ledger claims, got %d", agg.ClaimsWithLedgerData)
	}
	if agg.VerifiedClaims != 2 {
		t.Fatalf("expected 2 verified claims, got %d", agg.VerifiedClaims)
	}
}

func TestAggregateIsPure(t *testing.T) {
	claims := []product.ClaimDTO{notarizedClaim(), plainClaim()}
	outcomes := []Outcome{{Verified: true}}

	first := Aggregate(claims, outcomes)
	second := Aggregate(claims, outcomes)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical output, got %+v vs %+v", first, second)
	}
}
