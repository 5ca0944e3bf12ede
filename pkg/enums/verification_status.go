package enums

import "fmt"

// OverallStatus is the aggregated trust verdict for a product's claims.
type OverallStatus string

const (
	StatusNoClaims          OverallStatus = "no_claims"
	StatusNoBlockchainData  OverallStatus = "no_blockchain_data"
	StatusVerified          OverallStatus = "verified"
	StatusPartiallyVerified OverallStatus = "partially_verified"
	StatusUnverified        OverallStatus = "unverified"
)

var validOverallStatuses = []OverallStatus{
	StatusNoClaims,
	StatusNoBlockchainData,
	StatusVerified,
	StatusPartiallyVerified,
	StatusUnverified,
}

// IsValid reports whether the value is a canonical overall status.
func (s OverallStatus) IsValid() bool {
	for _, candidate := range validOverallStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOverallStatus converts raw input into OverallStatus.
func ParseOverallStatus(value string) (OverallStatus, error) {
	for _, candidate := range validOverallStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid overall status %q", value)
}
