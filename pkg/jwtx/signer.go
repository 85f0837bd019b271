package jwtx

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues EdDSA signed tokens.
type Signer struct {
	kid string
	key ed25519.PrivateKey
}

// NewSigner wraps an Ed25519 key. The kid is derived from the public key so
// it stays stable across restarts that reuse the same seed.
func NewSigner(key ed25519.PrivateKey) (*Signer, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("jwtx: invalid Ed25519 private key size")
	}
	return &Signer{kid: KeyID(key.Public().(ed25519.PublicKey)), key: key}, nil
}

func (s *Signer) KID() string { return s.kid }

func (s *Signer) PublicKey() ed25519.PublicKey { return s.key.Public().(ed25519.PublicKey) }

func (s *Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// KeyID is the first 12 bytes of the SHA-256 of pub, base64url encoded.
func KeyID(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}
