package product

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veritrace/veritrace-backend/pkg/batchid"
	"github.com/veritrace/veritrace-backend/pkg/db"
	"github.com/veritrace/veritrace-backend/pkg/db/models"
	"github.com/veritrace/veritrace-backend/pkg/enums"
	pkgerrors "github.com/veritrace/veritrace-backend/pkg/errors"
	"github.com/veritrace/veritrace-backend/pkg/logger"
	"github.com/veritrace/veritrace-backend/pkg/outbox"
)

// batchIDAttempts bounds regeneration when a generated batch ID collides.
const batchIDAttempts = 3

// Service exposes the supplier-facing product registry operations.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	GetByBatchID(ctx context.Context, batchID string) (*ProductDTO, error)
	Stats(ctx context.Context) (*Stats, error)
}

type service struct {
	dbc    *db.Client
	repo   *Repository
	outbox *outbox.Service
	logg   *logger.Logger
}

// NewService wires the registry service.
func NewService(dbc *db.Client, repo *Repository, ob *outbox.Service, logg *logger.Logger) Service {
	return &service{dbc: dbc, repo: repo, outbox: ob, logg: logg}
}

// CreateProduct registers a product with its claims and queues each claim for
// asynchronous notarization. The product rows and the outbox events commit in
// one transaction.
func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	prefix := batchid.PrefixFromName(input.ProductName)

	var created *models.Product
	var lastErr error
	for attempt := 0; attempt < batchIDAttempts; attempt++ {
		candidate := buildProduct(input, batchid.Generate(prefix))
		lastErr = s.dbc.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			if _, err := repo.CreateProduct(ctx, candidate); err != nil {
				return err
			}
			for _, claim := range candidate.Claims {
				event := outbox.DomainEvent{
					EventType:     enums.EventClaimSubmitted,
					AggregateType: enums.AggregateClaim,
					AggregateID:   claim.ID,
					Data: outbox.ClaimSubmittedEvent{
						ClaimID:          claim.ID,
						ProductID:        candidate.ID,
						BatchID:          candidate.BatchID,
						ClaimType:        claim.ClaimType,
						ClaimDescription: claim.ClaimDescription,
					},
				}
				if err := s.outbox.Emit(ctx, tx, event); err != nil {
					return err
				}
			}
			return nil
		})
		if lastErr == nil {
			created = candidate
			break
		}
		if !db.IsUniqueViolation(lastErr, "ux_products_batch_id") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "creating product")
		}
		// collision on the generated batch id, regenerate and retry
	}
	if created == nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate a unique batch id")
	}

	ctx = s.logg.WithBatchID(ctx, created.BatchID)
	s.logg.Info(ctx, "product registered")
	return ToProductDTO(created), nil
}

// GetByBatchID loads a product and its claims by public batch identifier.
func (s *service) GetByBatchID(ctx context.Context, batchID string) (*ProductDTO, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "batch id is required")
	}

	row, err := s.repo.GetByBatchID(ctx, batchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading product")
	}
	return ToProductDTO(row), nil
}

// Stats aggregates registry totals for the public stats endpoint.
func (s *service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.repo.CountStats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregating stats")
	}
	return stats, nil
}

func validateCreateInput(input CreateProductInput) error {
	if strings.TrimSpace(input.ProductName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if strings.TrimSpace(input.SupplierName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "supplier name is required")
	}
	for _, claim := range input.Claims {
		if strings.TrimSpace(claim.ClaimType) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "claim type is required")
		}
		if strings.TrimSpace(claim.ClaimDescription) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "claim description is required")
		}
	}
	return nil
}

// buildProduct assigns IDs up front so claims can reference the product inside
// a single insert.
func buildProduct(input CreateProductInput, batchID string) *models.Product {
	productID := uuid.New()
	claims := make([]models.Claim, 0, len(input.Claims))
	for _, claim := range input.Claims {
		claims = append(claims, models.Claim{
			ID:               uuid.New(),
			ProductID:        productID,
			ClaimType:        strings.TrimSpace(claim.ClaimType),
			ClaimDescription: strings.TrimSpace(claim.ClaimDescription),
		})
	}
	return &models.Product{
		ID:           productID,
		BatchID:      batchID,
		ProductName:  strings.TrimSpace(input.ProductName),
		SupplierName: strings.TrimSpace(input.SupplierName),
		Description:  input.Description,
		Claims:       claims,
	}
}
