package cryptox

import (
	"crypto/ed25519"
	"fmt"
)

// Ed25519FromSeed expands a stored seed into a signing key. Only the first
// ed25519.SeedSize bytes of seed are used.
func Ed25519FromSeed(seed []byte) (ed25519.PrivateKey, error) {
	if len(seed) < ed25519.SeedSize {
		return nil, fmt.Errorf("cryptox: ed25519 seed is %d bytes, want %d", len(seed), ed25519.SeedSize)
	}
	return ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize]), nil
}
