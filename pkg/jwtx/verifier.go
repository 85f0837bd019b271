package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Verifier validates a token and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// EdDSAVerifier checks tokens against a fixed set of Ed25519 public keys.
type EdDSAVerifier struct {
	keys   map[string]ed25519.PublicKey
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewVerifier trusts the given public keys, indexed by KeyID. An empty
// issuer disables the iss check.
func NewVerifier(issuer string, keys ...ed25519.PublicKey) *EdDSAVerifier {
	m := make(map[string]ed25519.PublicKey, len(keys))
	for _, k := range keys {
		m[KeyID(k)] = k
	}
	return &EdDSAVerifier{keys: m, issuer: issuer, leeway: 30 * time.Second, now: time.Now}
}

func (v *EdDSAVerifier) Verify(raw string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		// exp/nbf are checked below against the injected clock.
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		pub, ok := v.keys[kid]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}
		return pub, nil
	})
	if err != nil {
		if errors.Is(err, ErrUnknownKID) {
			return Claims{}, ErrUnknownKID
		}
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Claims{}, ErrIssuer
	}
	if err := claims.ValidateTimes(v.now().UTC(), v.leeway); err != nil {
		return Claims{}, err
	}
	return claims, nil
}
