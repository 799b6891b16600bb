package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// NumericCodeLength is the length of one-time codes delivered over email/SMS.
const NumericCodeLength = 6

// RecoveryCodeLength is the length of account recovery codes.
const RecoveryCodeLength = 24

const recoveryCharset = "ABCDEFGHJKMNPQRSTVWXYZ0123456789"

// GenerateNumericCode returns a random code of n decimal digits, zero padded.
func GenerateNumericCode(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("code length must be positive, got %d", n)
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate numeric code: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v), nil
}

// GenerateRecoveryCode returns a 24-character single-use recovery code drawn
// from an unambiguous uppercase alphabet (no I, L, O, U).
func GenerateRecoveryCode() (string, error) {
	out := make([]byte, RecoveryCodeLength)
	for i := range out {
		v, err := rand.Int(rand.Reader, big.NewInt(int64(len(recoveryCharset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate recovery code: %w", err)
		}
		out[i] = recoveryCharset[v.Int64()]
	}
	return string(out), nil
}
