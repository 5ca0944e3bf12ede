package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a supplier-submitted product. The batch ID is its public,
// human-shareable identity; rows are immutable after creation.
type Product struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BatchID      string    `gorm:"column:batch_id;not null;uniqueIndex:ux_products_batch_id"`
	ProductName  string    `gorm:"column:product_name;not null"`
	SupplierName string    `gorm:"column:supplier_name;not null"`
	Description  *string   `gorm:"column:description"`
	Claims       []Claim   `gorm:"foreignKey:ProductID"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
