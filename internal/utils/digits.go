package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// SessidWidth is the number of digits in a session id.
	SessidWidth = 7
	// ResetTokenWidth is the number of digits in a password reset token.
	ResetTokenWidth = 4
)

// RandomDigits returns a zero padded decimal string of exactly width digits,
// drawn uniformly below the largest width-digit number (9999999 for width 7).
// Collisions are not checked.
func RandomDigits(width int) (string, error) {
	if width <= 0 || width > 18 {
		return "", fmt.Errorf("invalid width %d", width)
	}
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(width)), nil)
	max.Sub(max, big.NewInt(1))
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", width, n.Int64()), nil
}

// NewSessid generates a session id for a fresh signin.
func NewSessid() (string, error) { return RandomDigits(SessidWidth) }

// NewResetToken generates a password reset token.
func NewResetToken() (string, error) { return RandomDigits(ResetTokenWidth) }
