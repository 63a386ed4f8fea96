package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOTP returns a uniformly random 4-digit verification code in
// [1000, 9999]. The code is always exactly four numeric characters.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", fmt.Errorf("cryptox: failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}
