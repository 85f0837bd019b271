package wireguard

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net/netip"
)

var (
	ErrPoolExhausted = errors.New("wireguard: address pool exhausted")
	ErrInvalidSubnet = errors.New("wireguard: invalid subnet")
)

// ParseSubnet parses and validates the client address pool. Only IPv4 pools
// with a prefix length between 8 and 30 are accepted.
func ParseSubnet(s string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("%w: %w", ErrInvalidSubnet, err)
	}
	if !p.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("%w: %s is not IPv4", ErrInvalidSubnet, s)
	}
	if p.Bits() < 8 || p.Bits() > 30 {
		return netip.Prefix{}, fmt.Errorf("%w: prefix length %d outside 8..30", ErrInvalidSubnet, p.Bits())
	}
	return p.Masked(), nil
}

// GatewayAddress is network+1, reserved for the server interface.
func GatewayAddress(subnet netip.Prefix) netip.Addr {
	return subnet.Masked().Addr().Next()
}

// NextAddress returns the lowest host address in subnet that is not in
// existing. Scanning starts at network+2 and stops before the broadcast
// address. The result depends only on the inputs.
func NextAddress(existing []netip.Addr, subnet netip.Prefix) (netip.Addr, error) {
	if !subnet.IsValid() || !subnet.Addr().Is4() || subnet.Bits() > 30 {
		return netip.Addr{}, ErrInvalidSubnet
	}

	taken := make(map[netip.Addr]struct{}, len(existing))
	for _, a := range existing {
		taken[a.Unmap()] = struct{}{}
	}

	network := subnet.Masked().Addr().As4()
	base := binary.BigEndian.Uint32(network[:])
	size := uint64(1) << (32 - subnet.Bits())

	for host := uint64(2); host < size-1; host++ {
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], base+uint32(host))
		addr := netip.AddrFrom4(b)
		if _, used := taken[addr]; !used {
			return addr, nil
		}
	}
	return netip.Addr{}, ErrPoolExhausted
}
