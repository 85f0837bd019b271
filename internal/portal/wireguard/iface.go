package wireguard

import (
	"context"
	"fmt"
	"strings"

	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// DeviceReader is the read side of *wgctrl.Client.
type DeviceReader interface {
	Device(name string) (*wgtypes.Device, error)
}

// InterfacePublicKey reads the gateway's public key from the running
// interface, through wgctrl when dev is non-nil and `wg show` otherwise.
func InterfacePublicKey(ctx context.Context, iface string, dev DeviceReader, runner CommandRunner) (string, error) {
	ctx, cancel := withTimeout(ctx, DefaultSyncTimeout)
	defer cancel()

	if dev != nil {
		d, err := dev.Device(iface)
		if err != nil {
			return "", fmt.Errorf("wireguard: read device %s: %w", iface, err)
		}
		return d.PublicKey.String(), nil
	}

	out, err := runner.Run(ctx, nil, "wg", "show", iface, "public-key")
	if err != nil {
		return "", fmt.Errorf("wireguard: read public key of %s: %w", iface, err)
	}
	key, err := wgtypes.ParseKey(strings.TrimSpace(string(out)))
	if err != nil {
		return "", fmt.Errorf("wireguard: parse public key of %s: %w", iface, err)
	}
	return key.String(), nil
}
