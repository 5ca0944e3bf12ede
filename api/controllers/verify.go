package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veritrace/veritrace-backend/api/responses"
	"github.com/veritrace/veritrace-backend/internal/verification"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
)

// VerifyProduct resolves a batch ID into the aggregated trust verdict with
// per-claim ledger proof links.
func VerifyProduct(svc *verification.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "verification service unavailable"))
			return
		}

		batchID := chi.URLParam(r, "batchID")
		result, err := svc.VerifyProduct(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
