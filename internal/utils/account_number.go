package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/dberezin/bank-core/internal/models"
)

// Account numbers are 16 digits: a 5-digit bank identification number, a
// 10-digit random body and one Luhn check digit.
const (
	binLength  = 5
	bodyLength = 10
)

// bodySpace is 10^bodyLength; the random body is drawn uniformly from
// [0, bodySpace) so leading zeros are as likely as any other digit.
var bodySpace = new(big.Int).Exp(big.NewInt(10), big.NewInt(bodyLength), nil)

// GenerateAccountNumber produces a checksum-valid 16-digit account number
// starting with bin. It does not guarantee uniqueness; callers must check
// the registry and retry on collision.
func GenerateAccountNumber(bin string) (string, error) {
	if len(bin) != binLength || !allDigits(bin) {
		return "", models.ErrInvalidIssuerPrefix
	}

	body, err := rand.Int(rand.Reader, bodySpace)
	if err != nil {
		return "", fmt.Errorf("failed to generate random body: %w", err)
	}

	base := fmt.Sprintf("%s%0*d", bin, bodyLength, body)
	check, err := CheckDigit(base)
	if err != nil {
		return "", fmt.Errorf("failed to compute check digit: %w", err)
	}

	return fmt.Sprintf("%s%d", base, check), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
