package product

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veritrace/veritrace-backend/pkg/db/models"
)

func TestRepositoryProductFlow(t *testing.T) {
	conn := openTestDB(t)
	tx := conn.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	t.Cleanup(func() {
		_ = tx.Rollback()
	})

	repo := NewRepository(tx)
	ctx := context.Background()

	productID := uuid.New()
	firstClaim := uuid.New()
	secondClaim := uuid.New()
	row := &models.Product{
		ID:           productID,
		BatchID:      "COFFEE-1714000000000-A1B2C3",
		ProductName:  "Coffee Beans",
		SupplierName: "Highland Farms",
		Claims: []models.Claim{
			{ID: firstClaim, ProductID: productID, ClaimType: "organic", ClaimDescription: "USDA organic", CreatedAt: time.Now().Add(-time.Minute)},
			{ID: secondClaim, ProductID: productID, ClaimType: "fair-trade", ClaimDescription: "Fair trade certified", CreatedAt: time.Now()},
		},
	}

	created, err := repo.CreateProduct(ctx, row)
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatal("expected product id")
	}

	fetched, err := repo.GetByBatchID(ctx, row.BatchID)
	if err != nil {
		t.Fatalf("get by batch id: %v", err)
	}
	if len(fetched.Claims) != 2 {
		t.Fatalf("expected 2 claims, got %d", len(fetched.Claims))
	}
	if fetched.Claims[0].ID != firstClaim {
		t.Fatal("expected claims ordered oldest first")
	}

	if err := repo.UpdateClaimNotarization(ctx, firstClaim, "0.0.4821@1714000000.000000001", "1714000000.000000001"); err != nil {
		t.Fatalf("update notarization: %v", err)
	}
	claim, err := repo.GetClaimByID(ctx, firstClaim)
	if err != nil {
		t.Fatalf("get claim: %v", err)
	}
	if !claim.Notarized() {
		t.Fatal("expected claim to be notarized")
	}
	if claim.HCSTimestamp == nil || *claim.HCSTimestamp != "1714000000.000000001" {
		t.Fatalf("unexpected timestamp %v", claim.HCSTimestamp)
	}

	stats, err := repo.CountStats(ctx)
	if err != nil {
		t.Fatalf("count stats: %v", err)
	}
	if stats.TotalProducts < 1 || stats.TotalClaims < 2 || stats.NotarizedClaims < 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	claims, err := repo.ListClaimsByProductID(ctx, productID)
	if err != nil {
		t.Fatalf("list claims: %v", err)
	}
	if len(claims) != 2 || claims[0].ID != firstClaim {
		t.Fatalf("unexpected claim listing %+v", claims)
	}
}
