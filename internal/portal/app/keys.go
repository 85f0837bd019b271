package app

import (
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/wgportal/pkg/cryptox"
	"github.com/aussiebroadwan/wgportal/pkg/jwtx"
)

const secretSize = 32

// Keys holds the long lived secrets. Each is read from its own file and
// created on first start, so restarts keep issued tokens, password hashes
// and sealed peer keys valid.
type Keys struct {
	Hasher   *cryptox.Hasher
	Signer   *jwtx.Signer
	Verifier *jwtx.EdDSAVerifier
	Sealer   *cryptox.Sealer
}

// InitKeys loads or creates the pepper, the token signing seed and the peer
// key master secret.
func InitKeys(cfg Config, logger *slog.Logger) (*Keys, error) {
	pepper, err := cryptox.LoadOrCreateSecret(cfg.PepperFile, secretSize)
	if err != nil {
		return nil, fmt.Errorf("pepper: %w", err)
	}

	seed, err := cryptox.LoadOrCreateSecret(cfg.SigningKeyFile, secretSize)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	priv, err := cryptox.Ed25519FromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}
	signer, err := jwtx.NewSigner(priv)
	if err != nil {
		return nil, fmt.Errorf("signing key: %w", err)
	}

	master, err := cryptox.LoadOrCreateSecret(cfg.PeerKeyFile, secretSize)
	if err != nil {
		return nil, fmt.Errorf("peer key: %w", err)
	}
	sealer, err := cryptox.NewSealer(master)
	if err != nil {
		return nil, fmt.Errorf("peer key: %w", err)
	}

	logger.Info("keys loaded",
		"signing_kid", signer.KID(),
		"issuer", cfg.Issuer,
	)

	return &Keys{
		Hasher:   cryptox.NewHasher(pepper),
		Signer:   signer,
		Verifier: jwtx.NewVerifier(cfg.Issuer, signer.PublicKey()),
		Sealer:   sealer,
	}, nil
}
