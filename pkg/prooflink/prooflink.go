// Package prooflink builds explorer URLs for notarized claims so verification
// responses can link straight to the public ledger record.
package prooflink

import (
	"fmt"
	"net/url"

	"github.com/veritrace/veritrace-backend/pkg/enums"
)

const hashscanBase = "https://hashscan.io"

// Links carries the explorer URLs attached to a notarized claim. Fields are
// empty when the corresponding identifier is missing; building links never
// fails.
type Links struct {
	Transaction string `json:"transaction,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Explorer    string `json:"explorer,omitempty"`
}

// Builder renders HashScan and mirror-node URLs for a fixed network.
type Builder struct {
	network enums.HederaNetwork
}

// NewBuilder pins the builder to a network. Invalid networks fall back to
// testnet so links stay well formed.
func NewBuilder(network enums.HederaNetwork) *Builder {
	if !network.IsValid() {
		network = enums.NetworkTestnet
	}
	return &Builder{network: network}
}

// Build assembles the link set for a consensus transaction and topic. Either
// identifier may be empty.
func (b *Builder) Build(transactionID, topicID string) Links {
	links := Links{}
	if transactionID != "" {
		links.Transaction = fmt.Sprintf("%s/%s/transaction/%s", hashscanBase, b.network, url.PathEscape(transactionID))
		links.Explorer = fmt.Sprintf("%s/api/v1/transactions/%s", b.mirrorBase(), url.PathEscape(transactionID))
	}
	if topicID != "" {
		links.Topic = fmt.Sprintf("%s/%s/topic/%s", hashscanBase, b.network, url.PathEscape(topicID))
	}
	return links
}

func (b *Builder) mirrorBase() string {
	return fmt.Sprintf("https://%s.mirrornode.hedera.com", b.network)
}
