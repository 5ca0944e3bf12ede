package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/veritrace/veritrace-backend/pkg/db/models"
)

// ProductDTO is the product payload returned to clients.
type ProductDTO struct {
	ID           uuid.UUID  `json:"id"`
	BatchID      string     `json:"batch_id"`
	ProductName  string     `json:"product_name"`
	SupplierName string     `json:"supplier_name"`
	Description  *string    `json:"description,omitempty"`
	Claims       []ClaimDTO `json:"claims"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ClaimDTO is a single product claim with its notarization state.
type ClaimDTO struct {
	ID               uuid.UUID `json:"id"`
	ClaimType        string    `json:"claim_type"`
	ClaimDescription string    `json:"claim_description"`
	HCSTransactionID *string   `json:"hcs_transaction_id,omitempty"`
	HCSTimestamp     *string   `json:"hcs_timestamp,omitempty"`
	Notarized        bool      `json:"notarized"`
	CreatedAt        time.Time `json:"created_at"`
}

// CreateProductInput holds the validated payload to register a product.
type CreateProductInput struct {
	ProductName  string
	SupplierName string
	Description  *string
	Claims       []ClaimInput
}

// ClaimInput is one claim attached at submission time.
type ClaimInput struct {
	ClaimType        string
	ClaimDescription string
}

// Stats summarizes the registry for the public stats endpoint.
type Stats struct {
	TotalProducts   int64 `json:"total_products"`
	TotalClaims     int64 `json:"total_claims"`
	NotarizedClaims int64 `json:"notarized_claims"`
}

// ToProductDTO maps a product row and its claims to the client payload.
func ToProductDTO(product *models.Product) *ProductDTO {
	if product == nil {
		return nil
	}
	dto := &ProductDTO{
		ID:           product.ID,
		BatchID:      product.BatchID,
		ProductName:  product.ProductName,
		SupplierName: product.SupplierName,
		Description:  product.Description,
		Claims:       make([]ClaimDTO, 0, len(product.Claims)),
		CreatedAt:    product.CreatedAt,
	}
	for _, claim := range product.Claims {
		dto.Claims = append(dto.Claims, ToClaimDTO(claim))
	}
	return dto
}

// ToClaimDTO maps a claim row to the client payload.
func ToClaimDTO(claim models.Claim) ClaimDTO {
	return ClaimDTO{
		ID:               claim.ID,
		ClaimType:        claim.ClaimType,
		ClaimDescription: claim.ClaimDescription,
		HCSTransactionID: claim.HCSTransactionID,
		HCSTimestamp:     claim.HCSTimestamp,
		Notarized:        claim.Notarized(),
		CreatedAt:        claim.CreatedAt,
	}
}
