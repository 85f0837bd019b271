package wireguard

import (
	"net"
	"net/netip"
	"strconv"
	"strings"
)

// ClientConfig is everything needed to render a client .conf file.
type ClientConfig struct {
	PrivateKey      string
	Address         netip.Addr
	ServerPublicKey string
	EndpointHost    string
	EndpointPort    int
	DNS             []netip.Addr
	Keepalive       int
}

// Render produces the wg-quick client configuration. Output is byte
// identical for identical input and always ends in a newline. All traffic is
// routed through the tunnel.
func Render(c ClientConfig) string {
	dns := make([]string, len(c.DNS))
	for i, a := range c.DNS {
		dns[i] = a.String()
	}

	var b strings.Builder
	b.WriteString("[Interface]\n")
	b.WriteString("PrivateKey = " + c.PrivateKey + "\n")
	b.WriteString("Address = " + netip.PrefixFrom(c.Address, c.Address.BitLen()).String() + "\n")
	if len(dns) > 0 {
		b.WriteString("DNS = " + strings.Join(dns, ", ") + "\n")
	}
	b.WriteString("\n[Peer]\n")
	b.WriteString("PublicKey = " + c.ServerPublicKey + "\n")
	b.WriteString("Endpoint = " + net.JoinHostPort(c.EndpointHost, strconv.Itoa(c.EndpointPort)) + "\n")
	b.WriteString("AllowedIPs = 0.0.0.0/0\n")
	if c.Keepalive > 0 {
		b.WriteString("PersistentKeepalive = " + strconv.Itoa(c.Keepalive) + "\n")
	}
	return b.String()
}

// ConfigFileName turns a device name into a safe attachment file name.
func ConfigFileName(device string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(device) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		name = "wireguard"
	}
	return name + ".conf"
}
