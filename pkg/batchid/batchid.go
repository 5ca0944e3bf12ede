// Package batchid generates and validates the public batch identifiers used
// to look up products and encode QR codes.
package batchid

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"
)

const (
	// FallbackPrefix is used when no usable product-name token is available.
	FallbackPrefix = "PRD"

	randomLen      = 6
	base36Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// validPattern is the strict display format: three letters, a 4-digit block,
// a 6-digit block. Generate produces a different shape (arbitrary prefix
// length plus full epoch millis); the mismatch is inherited behavior and is
// kept deliberately. See the format-mismatch test before changing either side.
var validPattern = regexp.MustCompile(`^[A-Z]{3}-\d{4}-\d{6}$`)

var randomSource = rand.New(rand.NewSource(time.Now().UnixNano()))

// Generate produces an identifier of the form PREFIX-epochMillis-RANDOM6.
// No uniqueness check happens here; the products table's unique constraint on
// batch_id is the real backstop.
func Generate(prefix string) string {
	normalized := strings.ToUpper(strings.TrimSpace(prefix))
	if normalized == "" {
		normalized = FallbackPrefix
	}
	return fmt.Sprintf("%s-%d-%s", normalized, time.Now().UnixMilli(), randomToken(randomLen))
}

// PrefixFromName derives the canonical prefix: the first whitespace-delimited
// token of the product name, upper-cased.
func PrefixFromName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return FallbackPrefix
	}
	return strings.ToUpper(fields[0])
}

// IsValid matches the strict display pattern.
func IsValid(batchID string) bool {
	return validPattern.MatchString(batchID)
}

func randomToken(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36Alphabet[randomSource.Intn(len(base36Alphabet))]
	}
	return string(b)
}
