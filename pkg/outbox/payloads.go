package outbox

import (
	"time"

	"github.com/google/uuid"

	"github.com/veritrace/veritrace-backend/pkg/enums"
)

// ClaimSubmittedEvent asks the notary worker to record one claim on the
// ledger. The message carries everything the worker needs so it never has to
// read the product row back.
type ClaimSubmittedEvent struct {
	ClaimID          uuid.UUID `json:"claim_id"`
	ProductID        uuid.UUID `json:"product_id"`
	BatchID          string    `json:"batch_id"`
	ClaimType        string    `json:"claim_type"`
	ClaimDescription string    `json:"claim_description"`
}

// VerificationCompletedEvent is the analytics fact emitted after each public
// verification request, whatever its outcome.
type VerificationCompletedEvent struct {
	BatchID       string              `json:"batch_id"`
	OverallStatus enums.OverallStatus `json:"overall_status"`
	Source        enums.ResultSource  `json:"source"`
	DurationMS    int64               `json:"duration_ms"`
	OccurredAt    time.Time           `json:"occurred_at"`
}
