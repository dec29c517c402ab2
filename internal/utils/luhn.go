package utils

import "fmt"

// Accepted digit counts for full card-style numbers handed to ValidateLuhn.
const (
	luhnMinLength = 13
	luhnMaxLength = 19
)

// luhnSum adds up the digits of s, doubling every second digit counting from
// the right. When shifted is true the rightmost digit is a doubled position,
// which is the parity used when a check digit has not been appended yet.
// The second return value is false if s contains a non-digit byte.
func luhnSum(s string, shifted bool) (int, bool) {
	sum := 0
	double := shifted
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum, true
}

// CheckDigit computes the Luhn check digit for base, treating base's
// rightmost digit as the first doubled position.
func CheckDigit(base string) (int, error) {
	if base == "" {
		return 0, fmt.Errorf("empty base number")
	}
	sum, ok := luhnSum(base, true)
	if !ok {
		return 0, fmt.Errorf("base number contains non-digit characters: %q", base)
	}
	return (10 - sum%10) % 10, nil
}

// ValidateLuhn reports whether s is a checksum-valid card-style number.
// Space and dash separators are stripped first; any other non-digit content,
// or a stripped length outside 13-19 digits, makes the number invalid.
// It never panics and reports false rather than an error.
func ValidateLuhn(s string) bool {
	stripped := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '-' {
			continue
		}
		stripped = append(stripped, c)
	}
	if len(stripped) < luhnMinLength || len(stripped) > luhnMaxLength {
		return false
	}
	sum, ok := luhnSum(string(stripped), false)
	if !ok {
		return false
	}
	return sum%10 == 0
}
