package prooflink

import (
	"strings"
	"testing"

	"github.com/veritrace/veritrace-backend/pkg/enums"
)

func TestBuildTestnet(t *testing.T) {
	b := NewBuilder(enums.NetworkTestnet)
	links := b.Build("0.0.4821@1714000000.000000001", "0.0.5005")

	if !strings.HasPrefix(links.Transaction, "https://hashscan.io/testnet/transaction/") {
		t.Fatalf("unexpected transaction link %s", links.Transaction)
	}
	if links.Topic != "https://hashscan.io/testnet/topic/0.0.5005" {
		t.Fatalf("unexpected topic link %s", links.Topic)
	}
	if !strings.HasPrefix(links.Explorer, "https://testnet.mirrornode.hedera.com/api/v1/transactions/") {
		t.Fatalf("unexpected explorer link %s", links.Explorer)
	}
}

func TestBuildMainnet(t *testing.T) {
	b := NewBuilder(enums.NetworkMainnet)
	links := b.Build("0.0.4821@1714000000.000000001", "0.0.5005")

	for _, link := range []string{links.Transaction, links.Topic} {
		if !strings.Contains(link, "/mainnet/") {
			t.Fatalf("expected mainnet link, got %s", link)
		}
	}
	if !strings.HasPrefix(links.Explorer, "https://mainnet.mirrornode.hedera.com/") {
		t.Fatalf("unexpected explorer link %s", links.Explorer)
	}
}

func TestBuildMissingIdentifiers(t *testing.T) {
	b := NewBuilder(enums.NetworkTestnet)

	links := b.Build("", "0.0.5005")
	if links.Transaction != "" || links.Explorer != "" {
		t.Fatalf("expected empty transaction links, got %+v", links)
	}
	if links.Topic == "" {
		t.Fatal("expected topic link")
	}

	links = b.Build("0.0.4821@1714000000.000000001", "")
	if links.Topic != "" {
		t.Fatalf("expected empty topic link, got %s", links.Topic)
	}

	links = b.Build("", "")
	if links != (Links{}) {
		t.Fatalf("expected zero links, got %+v", links)
	}
}

func TestInvalidNetworkFallsBackToTestnet(t *testing.T) {
	b := NewBuilder(enums.HederaNetwork("previewnet"))
	links := b.Build("", "0.0.5005")
	if !strings.Contains(links.Topic, "/testnet/") {
		t.Fatalf("expected testnet fallback, got %s", links.Topic)
	}
}
