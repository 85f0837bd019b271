package wireguard

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

var ErrKeyGeneration = errors.New("wireguard: key generation failed")

// KeyPair holds base64 encoded Curve25519 keys. Degraded marks a pair built
// from plain random bytes because no real key primitive was available; its
// public key does not correspond to its private key.
type KeyPair struct {
	PrivateKey string
	PublicKey  string
	Degraded   bool
}

// KeyPairPort produces client key pairs.
type KeyPairPort interface {
	Generate(ctx context.Context) (KeyPair, error)
}

// CLIKeyGen shells out to `wg genkey` and `wg pubkey`.
type CLIKeyGen struct {
	Binary string
	Runner CommandRunner
}

func NewCLIKeyGen(runner CommandRunner) *CLIKeyGen {
	return &CLIKeyGen{Binary: "wg", Runner: runner}
}

func (g *CLIKeyGen) Generate(ctx context.Context) (KeyPair, error) {
	priv, err := g.Runner.Run(ctx, nil, g.Binary, "genkey")
	if err != nil {
		return KeyPair{}, fmt.Errorf("wg genkey: %w", err)
	}
	privKey, err := parseKey(priv)
	if err != nil {
		return KeyPair{}, fmt.Errorf("wg genkey output: %w", err)
	}

	pub, err := g.Runner.Run(ctx, []byte(privKey.String()+"\n"), g.Binary, "pubkey")
	if err != nil {
		return KeyPair{}, fmt.Errorf("wg pubkey: %w", err)
	}
	pubKey, err := parseKey(pub)
	if err != nil {
		return KeyPair{}, fmt.Errorf("wg pubkey output: %w", err)
	}

	return KeyPair{PrivateKey: privKey.String(), PublicKey: pubKey.String()}, nil
}

// Probe checks that the binary is installed.
func (g *CLIKeyGen) Probe(context.Context) error {
	return LookPath(g.Binary)
}

func parseKey(out []byte) (wgtypes.Key, error) {
	return wgtypes.ParseKey(strings.TrimSpace(string(out)))
}

// NativeKeyGen derives keys in-process through wgtypes.
type NativeKeyGen struct{}

func (NativeKeyGen) Generate(context.Context) (KeyPair, error) {
	priv, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{PrivateKey: priv.String(), PublicKey: priv.PublicKey().String()}, nil
}

func (NativeKeyGen) Probe(context.Context) error { return nil }

// RandomKeyPair builds a degraded pair from two independent 32 byte reads.
func RandomKeyPair(r io.Reader) (KeyPair, error) {
	var priv, pub [wgtypes.KeyLen]byte
	if _, err := io.ReadFull(r, priv[:]); err != nil {
		return KeyPair{}, err
	}
	if _, err := io.ReadFull(r, pub[:]); err != nil {
		return KeyPair{}, err
	}
	return KeyPair{
		PrivateKey: base64.StdEncoding.EncodeToString(priv[:]),
		PublicKey:  base64.StdEncoding.EncodeToString(pub[:]),
		Degraded:   true,
	}, nil
}

// FallbackKeyGen wraps a primary generator. When the primary fails and
// Strict is off it hands out a degraded random pair instead of an error.
type FallbackKeyGen struct {
	Primary    KeyPairPort
	Strict     bool
	Random     io.Reader
	Logger     *slog.Logger
	OnDegraded func()
}

func (g *FallbackKeyGen) Generate(ctx context.Context) (KeyPair, error) {
	kp, err := g.Primary.Generate(ctx)
	if err == nil {
		return kp, nil
	}
	if g.Strict {
		return KeyPair{}, fmt.Errorf("%w: %w", ErrKeyGeneration, err)
	}

	r := g.Random
	if r == nil {
		r = rand.Reader
	}
	kp, rerr := RandomKeyPair(r)
	if rerr != nil {
		return KeyPair{}, fmt.Errorf("%w: primary: %w, fallback: %w", ErrKeyGeneration, err, rerr)
	}

	if g.Logger != nil {
		g.Logger.WarnContext(ctx, "key generator unavailable, issued degraded random key pair",
			slog.Any("err", err),
			slog.String("public_key", kp.PublicKey),
		)
	}
	if g.OnDegraded != nil {
		g.OnDegraded()
	}
	return kp, nil
}

// KeyGenMode selects the primary key generator.
type KeyGenMode string

const (
	KeyGenAuto   KeyGenMode = "auto"
	KeyGenCLI    KeyGenMode = "cli"
	KeyGenNative KeyGenMode = "native"
)

type prober interface {
	KeyPairPort
	Probe(ctx context.Context) error
}

// NewKeyGenerator picks the primary for mode and wraps it in a
// FallbackKeyGen. In auto mode the wg CLI is used when installed, otherwise
// the native generator. In strict mode a primary that fails its probe is an
// error here, at startup, rather than on the first device.
func NewKeyGenerator(ctx context.Context, mode KeyGenMode, strict bool, runner CommandRunner, logger *slog.Logger, onDegraded func()) (KeyPairPort, error) {
	var primary prober
	switch mode {
	case KeyGenCLI:
		primary = NewCLIKeyGen(runner)
	case KeyGenNative:
		primary = NativeKeyGen{}
	case KeyGenAuto, "":
		cli := NewCLIKeyGen(runner)
		if cli.Probe(ctx) == nil {
			primary = cli
		} else {
			primary = NativeKeyGen{}
		}
	default:
		return nil, fmt.Errorf("wireguard: unknown keygen mode %q", mode)
	}

	if strict {
		if err := primary.Probe(ctx); err != nil {
			return nil, fmt.Errorf("%w: %s generator unavailable: %w", ErrKeyGeneration, mode, err)
		}
	}

	return &FallbackKeyGen{
		Primary:    primary,
		Strict:     strict,
		Logger:     logger,
		OnDegraded: onDegraded,
	}, nil
}
