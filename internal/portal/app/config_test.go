package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	require.Equal(t, "noop", cfg.WireGuard.SyncMode)
	require.Equal(t, "10.0.0.0/24", cfg.Subnet().String())
	require.Len(t, cfg.DNSServers(), 2)
	require.Equal(t, "localhost", cfg.WireGuard.ServerHost)
}

func TestProdDefaultsToCLISync(t *testing.T) {
	cfg := defaultConfig()
	cfg.Env = "prod"
	cfg.WireGuard.ServerHost = "vpn.example.com"
	require.NoError(t, cfg.Validate())
	require.Equal(t, "cli", cfg.WireGuard.SyncMode)
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Env = "prod"
	cfg.WireGuard.SyncMode = "ssh"
	cfg.WireGuard.KeyGen = "magic"
	cfg.WireGuard.NetworkRange = "not-a-cidr"
	cfg.WireGuard.DNS = "1.1.1.1, nope"
	cfg.WireGuard.ServerPublicKey = "short"
	cfg.WireGuard.ServerPort = 0
	cfg.WireGuard.MaxDevicesPerUser = -1

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"WG_SYNC_MODE", "WG_KEYGEN", "WG_NETWORK_RANGE", "WG_DNS",
		"WG_SERVER_PUBLIC_KEY", "WG_SERVER_PORT", "WG_SERVER_HOST",
		"WG_MAX_DEVICES_PER_USER",
	} {
		require.ErrorContains(t, err, want)
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "wgportal.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = 9000
access_token_ttl = "30m"

[accounts]
password_min_length = 12

[wireguard]
network_range = "10.8.0.0/16"
server_host = "vpn.example.com"
reconcile_interval = "0s"
max_devices_per_user = 3
`), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("WG_KEEPALIVE", "15")
	t.Setenv("WG_SYNC_TIMEOUT", "5")
	t.Setenv("WG_MAX_DEVICES_PER_USER", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, 9100, cfg.Port, "env wins over file")
	require.Equal(t, 30*time.Minute, cfg.AccessTokenTTL.Duration)
	require.Equal(t, 12, cfg.Accounts.PasswordMinLength)
	require.Equal(t, "10.8.0.0/16", cfg.Subnet().String())
	require.Equal(t, "vpn.example.com", cfg.WireGuard.ServerHost)
	require.Zero(t, cfg.WireGuard.ReconcileInterval.Duration)
	require.Equal(t, 15, cfg.WireGuard.Keepalive)
	require.Equal(t, 5*time.Second, cfg.WireGuard.SyncTimeout.Duration)
	require.Equal(t, 5, cfg.WireGuard.MaxDevicesPerUser)
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WG_INTERFACE=wg7\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("WG_INTERFACE") })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "wg7", cfg.WireGuard.Interface)
}

func TestLoadConfigBadFile(t *testing.T) {
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = \"eighty\"\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	_, err := LoadConfig()
	require.ErrorContains(t, err, "bad.toml")
}

func TestParseDuration(t *testing.T) {
	d, ok := parseDuration("90s")
	require.True(t, ok)
	require.Equal(t, 90*time.Second, d)

	d, ok = parseDuration("45")
	require.True(t, ok)
	require.Equal(t, 45*time.Second, d)

	_, ok = parseDuration("soon")
	require.False(t, ok)
}
