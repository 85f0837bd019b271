package wireguard_test

import (
	"context"
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/wireguard"
	"github.com/stretchr/testify/require"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

const testPub = "HIgo9xNzJMWLKASShiTqIybxZ0U3wGLiUeJ1PKf8ykw="

func TestCLISyncAttachDetach(t *testing.T) {
	runner := &fakeRunner{}
	s := &wireguard.CLISync{Interface: "wg0", Runner: runner, Timeout: time.Second}
	ctx := context.Background()

	require.NoError(t, s.Attach(ctx, testPub, netip.MustParseAddr("10.0.0.2")))
	require.NoError(t, s.Detach(ctx, testPub))

	require.Equal(t, []string{
		"wg set wg0 peer " + testPub + " allowed-ips 10.0.0.2/32",
		"wg-quick save wg0",
		"wg set wg0 peer " + testPub + " remove",
		"wg-quick save wg0",
	}, runner.argvs())
}

func TestCLISyncFailureCarriesPeer(t *testing.T) {
	runner := &fakeRunner{fail: map[string]error{"wg-quick save": errExit}}
	s := &wireguard.CLISync{Interface: "wg0", Runner: runner}

	err := s.Attach(context.Background(), testPub, netip.MustParseAddr("10.0.0.9"))
	require.ErrorIs(t, err, wireguard.ErrExternalSync)
	require.ErrorIs(t, err, errExit)
	require.Contains(t, err.Error(), testPub)
	require.Contains(t, err.Error(), "10.0.0.9")

	err = s.Detach(context.Background(), testPub)
	require.ErrorIs(t, err, wireguard.ErrExternalSync)
}

type fakeDevice struct {
	configs []wgtypes.Config
	err     error
	block   chan struct{}
}

func (f *fakeDevice) ConfigureDevice(name string, cfg wgtypes.Config) error {
	if f.block != nil {
		<-f.block
	}
	f.configs = append(f.configs, cfg)
	return f.err
}

func TestWgctrlSync(t *testing.T) {
	dev := &fakeDevice{}
	s := &wireguard.WgctrlSync{Interface: "wg0", Client: dev, Timeout: time.Second}
	ctx := context.Background()

	require.NoError(t, s.Attach(ctx, testPub, netip.MustParseAddr("10.0.0.2")))
	require.NoError(t, s.Detach(ctx, testPub))
	require.Len(t, dev.configs, 2)

	attach := dev.configs[0].Peers[0]
	require.Equal(t, testPub, attach.PublicKey.String())
	require.True(t, attach.ReplaceAllowedIPs)
	require.Len(t, attach.AllowedIPs, 1)
	require.Equal(t, "10.0.0.2/32", attach.AllowedIPs[0].String())

	require.True(t, dev.configs[1].Peers[0].Remove)
}

func TestWgctrlSyncErrors(t *testing.T) {
	ctx := context.Background()

	s := &wireguard.WgctrlSync{Interface: "wg0", Client: &fakeDevice{err: errors.New("no such device")}}
	require.ErrorIs(t, s.Attach(ctx, testPub, netip.MustParseAddr("10.0.0.2")), wireguard.ErrExternalSync)

	require.ErrorIs(t, s.Attach(ctx, "bogus", netip.MustParseAddr("10.0.0.2")), wireguard.ErrExternalSync)

	block := make(chan struct{})
	defer close(block)
	slow := &wireguard.WgctrlSync{Interface: "wg0", Client: &fakeDevice{block: block}, Timeout: 20 * time.Millisecond}
	err := slow.Detach(ctx, testPub)
	require.ErrorIs(t, err, wireguard.ErrExternalSync)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNoopSync(t *testing.T) {
	var s wireguard.PeerSyncPort = wireguard.NoopSync{}
	require.NoError(t, s.Attach(context.Background(), testPub, netip.MustParseAddr("10.0.0.2")))
	require.NoError(t, s.Detach(context.Background(), testPub))
}
