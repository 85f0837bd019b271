package wireguard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

var ErrExternalSync = errors.New("wireguard: interface sync failed")

const DefaultSyncTimeout = 10 * time.Second

// PeerSyncPort mirrors peer records onto the running WireGuard interface.
type PeerSyncPort interface {
	Attach(ctx context.Context, publicKey string, addr netip.Addr) error
	Detach(ctx context.Context, publicKey string) error
}

// SyncMode selects the PeerSyncPort implementation.
type SyncMode string

const (
	SyncCLI    SyncMode = "cli"
	SyncWgctrl SyncMode = "wgctrl"
	SyncNoop   SyncMode = "noop"
)

func attachError(pub string, addr netip.Addr, err error) error {
	return fmt.Errorf("%w: attach peer %s (%s): %w", ErrExternalSync, pub, addr, err)
}

func detachError(pub string, err error) error {
	return fmt.Errorf("%w: detach peer %s: %w", ErrExternalSync, pub, err)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultSyncTimeout
	}
	return context.WithTimeout(ctx, d)
}

// CLISync drives the interface through `wg set` and persists the running
// state with `wg-quick save` so peers survive an interface restart.
type CLISync struct {
	Interface string
	Runner    CommandRunner
	Timeout   time.Duration
}

func (s *CLISync) Attach(ctx context.Context, publicKey string, addr netip.Addr) error {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	allowed := netip.PrefixFrom(addr, addr.BitLen()).String()
	if _, err := s.Runner.Run(ctx, nil, "wg", "set", s.Interface, "peer", publicKey, "allowed-ips", allowed); err != nil {
		return attachError(publicKey, addr, err)
	}
	if err := s.save(ctx); err != nil {
		return attachError(publicKey, addr, err)
	}
	return nil
}

func (s *CLISync) Detach(ctx context.Context, publicKey string) error {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	if _, err := s.Runner.Run(ctx, nil, "wg", "set", s.Interface, "peer", publicKey, "remove"); err != nil {
		return detachError(publicKey, err)
	}
	if err := s.save(ctx); err != nil {
		return detachError(publicKey, err)
	}
	return nil
}

func (s *CLISync) save(ctx context.Context) error {
	_, err := s.Runner.Run(ctx, nil, "wg-quick", "save", s.Interface)
	return err
}

// DeviceConfigurer is the subset of *wgctrl.Client used here.
type DeviceConfigurer interface {
	ConfigureDevice(name string, cfg wgtypes.Config) error
}

// WgctrlSync talks to the kernel or userspace device directly. Persisting
// the peer set to disk is left to the interface's own SaveConfig setting.
type WgctrlSync struct {
	Interface string
	Client    DeviceConfigurer
	Timeout   time.Duration
}

func (s *WgctrlSync) Attach(ctx context.Context, publicKey string, addr netip.Addr) error {
	key, err := wgtypes.ParseKey(publicKey)
	if err != nil {
		return attachError(publicKey, addr, err)
	}

	peer := wgtypes.PeerConfig{
		PublicKey:         key,
		ReplaceAllowedIPs: true,
		AllowedIPs: []net.IPNet{{
			IP:   addr.AsSlice(),
			Mask: net.CIDRMask(addr.BitLen(), addr.BitLen()),
		}},
	}
	if err := s.configure(ctx, peer); err != nil {
		return attachError(publicKey, addr, err)
	}
	return nil
}

func (s *WgctrlSync) Detach(ctx context.Context, publicKey string) error {
	key, err := wgtypes.ParseKey(publicKey)
	if err != nil {
		return detachError(publicKey, err)
	}
	if err := s.configure(ctx, wgtypes.PeerConfig{PublicKey: key, Remove: true}); err != nil {
		return detachError(publicKey, err)
	}
	return nil
}

// configure runs ConfigureDevice, which has no context of its own, and gives
// up waiting when the timeout fires.
func (s *WgctrlSync) configure(ctx context.Context, peer wgtypes.PeerConfig) error {
	ctx, cancel := withTimeout(ctx, s.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- s.Client.ConfigureDevice(s.Interface, wgtypes.Config{Peers: []wgtypes.PeerConfig{peer}})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoopSync accepts every call. Used in development and tests where no
// interface exists.
type NoopSync struct{}

func (NoopSync) Attach(context.Context, string, netip.Addr) error { return nil }
func (NoopSync) Detach(context.Context, string) error             { return nil }
