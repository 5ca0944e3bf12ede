package product

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/veritrace/veritrace-backend/pkg/db/models"
)

// ProductRepository defines persistence operations for products and claims.
type ProductRepository interface {
	CreateProduct(context.Context, *models.Product) (*models.Product, error)
	GetByBatchID(context.Context, string) (*models.Product, error)
	ListClaimsByProductID(context.Context, uuid.UUID) ([]models.Claim, error)
	GetClaimByID(context.Context, uuid.UUID) (*models.Claim, error)
	UpdateClaimNotarization(context.Context, uuid.UUID, string, string) error
	CountStats(context.Context) (*Stats, error)
}

// Repository wires product and claim persistence to GORM.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateProduct inserts a product row together with its claims.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// GetByBatchID loads a product with its claims ordered oldest first.
func (r *Repository) GetByBatchID(ctx context.Context, batchID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Claims", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&product, "batch_id = ?", batchID).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListClaimsByProductID returns the product's claims ordered oldest first.
func (r *Repository) ListClaimsByProductID(ctx context.Context, productID uuid.UUID) ([]models.Claim, error) {
	var rows []models.Claim
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Find(&rows).
		Error
	return rows, err
}

// GetClaimByID loads a single claim row.
func (r *Repository) GetClaimByID(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	if err := r.db.WithContext(ctx).First(&claim, "id = ?", claimID).Error; err != nil {
		return nil, err
	}
	return &claim, nil
}

// UpdateClaimNotarization records the ledger proof for a claim. The update is
// idempotent; replaying it with the same receipt is a no-op.
func (r *Repository) UpdateClaimNotarization(ctx context.Context, claimID uuid.UUID, transactionID, timestamp string) error {
	return r.db.WithContext(ctx).
		Model(&models.Claim{}).
		Where("id = ?", claimID).
		Updates(map[string]any{
			"hcs_transaction_id": transactionID,
			"hcs_timestamp":      timestamp,
		}).
		Error
}

// CountStats aggregates registry-wide totals.
func (r *Repository) CountStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	tx := r.db.WithContext(ctx)
	if err := tx.Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.Claim{}).Count(&stats.TotalClaims).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.Claim{}).
		Where("hcs_transaction_id IS NOT NULL AND hcs_transaction_id <> ''").
		Count(&stats.NotarizedClaims).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}
