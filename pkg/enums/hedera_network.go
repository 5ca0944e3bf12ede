package enums

import "fmt"

// HederaNetwork selects the ledger network proof links point at.
type HederaNetwork string

const (
	NetworkMainnet HederaNetwork = "mainnet"
	NetworkTestnet HederaNetwork = "testnet"
)

func (n HederaNetwork) IsValid() bool {
	return n == NetworkMainnet || n == NetworkTestnet
}

// ParseHederaNetwork converts raw input into HederaNetwork.
func ParseHederaNetwork(value string) (HederaNetwork, error) {
	switch HederaNetwork(value) {
	case NetworkMainnet:
		return NetworkMainnet, nil
	case NetworkTestnet:
		return NetworkTestnet, nil
	default:
		return "", fmt.Errorf("invalid hedera network %q", value)
	}
}
