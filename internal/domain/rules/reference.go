package rules

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
)

const referencePrefix = "REF"

var referencePattern = regexp.MustCompile(`^REF\d{6}$`)

// NewDepositReference returns REF followed by six zero-padded random digits.
func NewDepositReference(src io.Reader) (string, error) {
	if src == nil {
		src = rand.Reader
	}
	n, err := rand.Int(src, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate deposit reference: %w", err)
	}
	return fmt.Sprintf("%s%06d", referencePrefix, n.Int64()), nil
}

func IsDepositReference(value string) bool {
	return referencePattern.MatchString(value)
}
