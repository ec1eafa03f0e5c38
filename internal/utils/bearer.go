package utils

import (
	"errors"
	"strings"
)

// MinTokenLength is the shortest string accepted as a token.
const MinTokenLength = 10

var (
	ErrNoToken       = errors.New("no token provided")
	ErrTokenHeader   = errors.New("token error")
	ErrTokenScheme   = errors.New("token type error")
	ErrTokenTooShort = errors.New("token invalid")
)

// ParseBearer extracts the token from an Authorization header of the form
// "Bearer <token>".  The scheme is matched case-insensitively.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrNoToken
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 {
		return "", ErrTokenHeader
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrTokenScheme
	}
	if len(parts[1]) < MinTokenLength {
		return "", ErrTokenTooShort
	}
	return parts[1], nil
}
