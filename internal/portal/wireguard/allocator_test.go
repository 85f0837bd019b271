package wireguard_test

import (
	"net/netip"
	"testing"

	"github.com/aussiebroadwan/wgportal/internal/portal/wireguard"
	"github.com/stretchr/testify/require"
)

func addrs(ss ...string) []netip.Addr {
	out := make([]netip.Addr, len(ss))
	for i, s := range ss {
		out[i] = netip.MustParseAddr(s)
	}
	return out
}

func TestNextAddressEmptyPool(t *testing.T) {
	subnet := netip.MustParsePrefix("10.0.0.0/24")

	got, err := wireguard.NextAddress(nil, subnet)
	require.NoError(t, err)
	require.Equal(t, netip.MustParseAddr("10.0.0.2"), got)
	require.Equal(t, netip.MustParseAddr("10.0.0.1"), wireguard.GatewayAddress(subnet))
}

func TestNextAddressFillsGaps(t *testing.T) {
	subnet := netip.MustParsePrefix("10.0.0.0/24")

	got, err := wireguard.NextAddress(addrs("10.0.0.2", "10.0.0.3", "10.0.0.5"), subnet)
	require.NoError(t, err)
	require.Equal(t, netip.MustParseAddr("10.0.0.4"), got)

	// Addresses outside the pool do not matter.
	got, err = wireguard.NextAddress(addrs("192.168.1.2"), subnet)
	require.NoError(t, err)
	require.Equal(t, netip.MustParseAddr("10.0.0.2"), got)
}

func TestNextAddressDeterministic(t *testing.T) {
	subnet := netip.MustParsePrefix("10.8.0.0/16")
	existing := addrs("10.8.0.2", "10.8.0.3", "10.8.0.4", "10.8.1.9")

	first, err := wireguard.NextAddress(existing, subnet)
	require.NoError(t, err)
	for range 50 {
		again, err := wireguard.NextAddress(existing, subnet)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	require.NotContains(t, existing, first)
	require.True(t, subnet.Contains(first))
}

func TestNextAddressExhausted(t *testing.T) {
	// A /30 has exactly one client address: network+2.
	subnet := netip.MustParsePrefix("10.0.0.0/30")

	got, err := wireguard.NextAddress(nil, subnet)
	require.NoError(t, err)
	require.Equal(t, netip.MustParseAddr("10.0.0.2"), got)

	_, err = wireguard.NextAddress(addrs("10.0.0.2"), subnet)
	require.ErrorIs(t, err, wireguard.ErrPoolExhausted)

	// A /29 leaves .2 to .6; .7 is broadcast.
	subnet = netip.MustParsePrefix("10.0.0.0/29")
	_, err = wireguard.NextAddress(addrs("10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6"), subnet)
	require.ErrorIs(t, err, wireguard.ErrPoolExhausted)
}

func TestParseSubnet(t *testing.T) {
	p, err := wireguard.ParseSubnet("10.0.0.77/24")
	require.NoError(t, err)
	require.Equal(t, netip.MustParsePrefix("10.0.0.0/24"), p)

	for _, bad := range []string{"", "10.0.0.0", "fd00::/64", "10.0.0.0/31", "10.0.0.0/7"} {
		_, err := wireguard.ParseSubnet(bad)
		require.ErrorIs(t, err, wireguard.ErrInvalidSubnet, "subnet %q", bad)
	}
}
