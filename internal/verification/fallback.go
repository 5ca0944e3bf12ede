package verification

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	product "github.com/veritrace/veritrace-backend/internal/products"
	"github.com/veritrace/veritrace-backend/pkg/batchid"
	"github.com/veritrace/veritrace-backend/pkg/prooflink"
)

// Synthesizer builds structurally complete substitute payloads served when
// the real backend cannot be reached. Synthesized data is never persisted;
// the demo source tag on the surrounding result is the only thing separating
// it from real data.
type Synthesizer struct {
	links *prooflink.Builder
}

// NewSynthesizer wires the fallback builder.
func NewSynthesizer(links *prooflink.Builder) *Synthesizer {
	return &Synthesizer{links: links}
}

// demoEntry is a curated, deterministic example keyed by batch ID.
type demoEntry struct {
	productName  string
	supplierName string
	description  string
	claims       []demoClaim
}

type demoClaim struct {
	claimType   string
	description string
	txID        string
	timestamp   string
}

// demoCatalog holds the batch IDs the demo experience promises will always
// resolve.
var demoCatalog = map[string]demoEntry{
	"COFFEE-2024-1001": {
		productName:  "Single Origin Coffee Beans",
		supplierName: "Highland Farms Co-op",
		description:  "Arabica beans from a certified high-altitude estate.",
		claims: []demoClaim{
			{
				claimType:   "organic",
				description: "Certified USDA organic, harvest 2024.",
				txID:        "0.0.4821@1714000000.000000001",
				timestamp:   "1714000000.000000001",
			},
			{
				claimType:   "fair-trade",
				description: "Fair trade premium paid to growers.",
				txID:        "0.0.4821@1714000060.000000002",
				timestamp:   "1714000060.000000002",
			},
		},
	},
	"HONEY-2024-2002": {
		productName:  "Raw Wildflower Honey",
		supplierName: "Meadow Apiaries",
		description:  "Unfiltered honey, single apiary batch.",
		claims: []demoClaim{
			{
				claimType:   "origin",
				description: "Harvested and bottled at the source apiary.",
				txID:        "0.0.4821@1714100000.000000001",
				timestamp:   "1714100000.000000001",
			},
		},
	},
}

// VerificationData is the payload a verify operation produces, real or
// synthesized.
type VerificationData struct {
	Product    product.ProductDTO     `json:"product"`
	Outcomes   []Outcome              `json:"outcomes"`
	Aggregated AggregatedVerification `json:"aggregated"`
}

// VerificationFallback builds a complete verification payload for the batch
// ID. Curated catalog entries are returned as-is; unknown IDs get a minimal
// single-claim demo product so the response shape never degrades.
func (s *Synthesizer) VerificationFallback(batchID string) *VerificationData {
	batchID = strings.TrimSpace(batchID)
	entry, ok := demoCatalog[batchID]
	if !ok {
		entry = demoEntry{
			productName:  "Demo Product",
			supplierName: "Demo Supplier",
			description:  "Sample data shown while the verification service is unreachable.",
			claims: []demoClaim{
				{
					claimType:   "authenticity",
					description: "Demo authenticity claim.",
					txID:        "0.0.4821@1714200000.000000001",
					timestamp:   "1714200000.000000001",
				},
			},
		}
	}

	dto, outcomes := s.synthesize(batchID, entry)
	claims := dto.Claims
	return &VerificationData{
		Product:    *dto,
		Outcomes:   outcomes,
		Aggregated: Aggregate(claims, outcomes),
	}
}

// SubmissionFallback echoes the caller's input as a complete product payload
// with invented ledger receipts, every claim marked notarized.
func (s *Synthesizer) SubmissionFallback(input product.CreateProductInput) *product.ProductDTO {
	entry := demoEntry{
		productName:  input.ProductName,
		supplierName: input.SupplierName,
		claims:       make([]demoClaim, 0, len(input.Claims)),
	}
	if input.Description != nil {
		entry.description = *input.Description
	}
	base := time.Now().Unix()
	for i, claim := range input.Claims {
		entry.claims = append(entry.claims, demoClaim{
			claimType:   claim.ClaimType,
			description: claim.ClaimDescription,
			txID:        fmt.Sprintf("0.0.4821@%d.%09d", base, i+1),
			timestamp:   fmt.Sprintf("%d.%09d", base, i+1),
		})
	}

	batchID := batchid.Generate(batchid.PrefixFromName(input.ProductName))
	dto, _ := s.synthesize(batchID, entry)
	return dto
}

func (s *Synthesizer) synthesize(batchID string, entry demoEntry) (*product.ProductDTO, []Outcome) {
	now := time.Now().UTC()
	dto := &product.ProductDTO{
		ID:           uuid.New(),
		BatchID:      batchID,
		ProductName:  entry.productName,
		SupplierName: entry.supplierName,
		Claims:       make([]product.ClaimDTO, 0, len(entry.claims)),
		CreatedAt:    now,
	}
	if entry.description != "" {
		description := entry.description
		dto.Description = &description
	}

	outcomes := make([]Outcome, 0, len(entry.claims))
	for _, claim := range entry.claims {
		txID := claim.txID
		timestamp := claim.timestamp
		claimID := uuid.New()
		dto.Claims = append(dto.Claims, product.ClaimDTO{
			ID:               claimID,
			ClaimType:        claim.claimType,
			ClaimDescription: claim.description,
			HCSTransactionID: &txID,
			HCSTimestamp:     &timestamp,
			Notarized:        true,
			CreatedAt:        now,
		})
		outcome := Outcome{
			ClaimID:       claimID,
			TransactionID: txID,
			Verified:      true,
		}
		if s.links != nil {
			links := s.links.Build(txID, "")
			outcome.ProofLinks = &links
		}
		outcomes = append(outcomes, outcome)
	}
	return dto, outcomes
}
