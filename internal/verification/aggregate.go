package verification

import (
	"math"

	"github.com/google/uuid"

	product "github.com/veritrace/veritrace-backend/internal/products"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	"github.com/veritrace/veritrace-backend/pkg/prooflink"
)

// Outcome is the result of confirming one claim's ledger transaction. A
// failed confirmation records its own error and never aborts the rest of the
// aggregation.
type Outcome struct {
	ClaimID       uuid.UUID       `json:"claim_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Verified      bool            `json:"verified"`
	Error         string          `json:"error,omitempty"`
	ProofLinks    *prooflink.Links `json:"proof_links,omitempty"`
}

// AggregatedVerification is the overall trust verdict computed fresh per
// request, never persisted.
type AggregatedVerification struct {
	OverallStatus          enums.OverallStatus `json:"overall_status"`
	TotalClaims            int                 `json:"total_claims"`
	ClaimsWithLedgerData   int                 `json:"claims_with_ledger_data"`
	VerifiedClaims         int                 `json:"verified_claims"`
	VerificationPercentage int                 `json:"verification_percentage"`
}

// Aggregate folds a product's claims and their confirmation outcomes into one
// verdict. Pure function; identical inputs always yield identical output.
//
// Status precedence, first match wins: no claims at all, no claim ever reached
// the ledger, every ledger-backed claim confirmed, at least one confirmed,
// none confirmed. "Verified" is measured against the claims that carry ledger
// data, not the total, so claims never submitted to the ledger are reported
// separately instead of silently dragging the status down.
func Aggregate(claims []product.ClaimDTO, outcomes []Outcome) AggregatedVerification {
	agg := AggregatedVerification{
		TotalClaims: len(claims),
	}
	for _, claim := range claims {
		if claim.Notarized {
			agg.ClaimsWithLedgerData++
		}
	}
	for _, outcome := range outcomes {
		if outcome.Verified {
			agg.VerifiedClaims++
		}
	}
	if agg.TotalClaims > 0 {
		agg.VerificationPercentage = int(math.Round(100 * float64(agg.VerifiedClaims) / float64(agg.TotalClaims)))
	}

	switch {
	case agg.TotalClaims == 0:
		agg.OverallStatus = enums.StatusNoClaims
	case agg.ClaimsWithLedgerData == 0:
		agg.OverallStatus = enums.StatusNoBlockchainData
	case agg.VerifiedClaims == agg.ClaimsWithLedgerData:
		agg.OverallStatus = enums.StatusVerified
	case agg.VerifiedClaims > 0:
		agg.OverallStatus = enums.StatusPartiallyVerified
	default:
		agg.OverallStatus = enums.StatusUnverified
	}
	return agg
}
