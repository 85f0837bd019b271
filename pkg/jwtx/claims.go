package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultAccessTokenTTL = 1 * time.Hour

// Claims carried by portal access tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Username at issue time, informational only. Sub is authoritative.
	Username string `json:"username,omitempty"`

	// Scopes, e.g. ["devices:write", "admin:read"].
	Scopes []string `json:"scopes,omitempty"`
}

// NewAccessClaims builds claims valid from now for ttl.
func NewAccessClaims(issuer, subject, username string, scopes []string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        newJTI(),
		},
		Username: username,
		Scopes:   scopes,
	}
}

func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// ValidateTimes checks exp and nbf against now, allowing leeway either side.
func (c Claims) ValidateTimes(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

func newJTI() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
