package models

import (
	"time"

	"github.com/google/uuid"
)

// Claim is a single assertion attached to a product, independently notarized
// on the Hedera Consensus Service. HCSTransactionID is set asynchronously
// after successful notarization and stays nil when notarization failed or was
// skipped. A claim with an HCSTimestamp always also has an HCSTransactionID.
type Claim struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	ClaimType        string    `gorm:"column:claim_type;not null"`
	ClaimDescription string    `gorm:"column:claim_description;not null"`
	HCSTransactionID *string   `gorm:"column:hcs_transaction_id"`
	HCSTimestamp     *string   `gorm:"column:hcs_timestamp"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Notarized reports whether the claim carries ledger proof.
func (c Claim) Notarized() bool {
	return c.HCSTransactionID != nil && *c.HCSTransactionID != ""
}
