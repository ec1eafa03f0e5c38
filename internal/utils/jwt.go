package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens

	"github.com/iliyamo/finance-control-api/internal/config"
)

var (
	// ErrTokenExpired is returned when the signature is valid but exp has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other verification failure.
	ErrTokenInvalid = errors.New("token invalid")
)

// Identity is the triple carried by both token kinds.
type Identity struct {
	ID     uint64
	Role   string
	Sessid string
}

// Claims is the JWT payload: {id, role, sessid} plus the registered claims
// (exp, iat).
type Claims struct {
	ID     uint64 `json:"id"`
	Role   string `json:"role"`
	Sessid string `json:"sessid"`
	jwt.RegisteredClaims
}

// Identity returns the id/role/sessid triple of c.
func (c *Claims) Identity() Identity {
	return Identity{ID: c.ID, Role: c.Role, Sessid: c.Sessid}
}

// IssueToken signs an HS256 JWT for ident that expires after ttl.
func IssueToken(ident Identity, secret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		ID:     ident.ID,
		Role:   ident.Role,
		Sessid: ident.Sessid,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks the signature of raw against secret and then its
// expiry.  An expired but correctly signed token yields ErrTokenExpired;
// anything else yields an error wrapping ErrTokenInvalid.
func VerifyToken(raw, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// DecodeToken reads the payload of raw without verifying anything.  Only use
// it on a token whose signature is already known to be good in the same flow.
func DecodeToken(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}

// TokenService issues and verifies access and refresh tokens.  Each kind has
// its own secret and lifetime taken from config.JWT.
type TokenService struct {
	cfg config.JWT
}

// NewTokenService validates cfg and returns a service bound to it.
func NewTokenService(cfg config.JWT) (*TokenService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TokenService{cfg: cfg}, nil
}

// IssueAccess signs a short lived access token.
func (s *TokenService) IssueAccess(ident Identity) (string, error) {
	return IssueToken(ident, s.cfg.Secret, s.cfg.AccessTTL())
}

// IssueRefresh signs a refresh token with the refresh secret and lifetime.
func (s *TokenService) IssueRefresh(ident Identity) (string, error) {
	return IssueToken(ident, s.cfg.RefreshSecret, s.cfg.RefreshLifetime())
}

// VerifyAccess verifies raw as an access token.
func (s *TokenService) VerifyAccess(raw string) (*Claims, error) {
	return VerifyToken(raw, s.cfg.Secret)
}

// VerifyRefresh verifies raw as a refresh token.
func (s *TokenService) VerifyRefresh(raw string) (*Claims, error) {
	return VerifyToken(raw, s.cfg.RefreshSecret)
}

// RefreshTTL is the configured refresh token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshLifetime() }
