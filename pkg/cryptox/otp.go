package cryptox

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// OTP code bounds. Codes are always six digits so they never need zero
// padding on the wire.
const (
	otpMin = 100000
	otpMax = 999999
)

// GenerateOTP returns a uniform random six-digit numeric code in
// [100000, 999999] using the system CSPRNG.
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%d", otpMin+n.Int64()), nil
}
