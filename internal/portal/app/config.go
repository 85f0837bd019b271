package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/internal/portal/wireguard"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// Duration is a time.Duration that reads "90s" style strings from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, ok := parseDuration(string(b))
	if !ok {
		return fmt.Errorf("invalid duration %q", b)
	}
	d.Duration = v
	return nil
}

// Config is read once at startup. Values come from, in increasing
// precedence: built in defaults, the TOML file named by CONFIG_FILE, and
// the environment (including a .env file in the working directory).
type Config struct {
	Env                 string   `toml:"env"`  // dev or prod (default: dev)
	Port                int      `toml:"port"` // HTTP port (default: 8080)
	Issuer              string   `toml:"issuer"`
	AccessTokenTTL      Duration `toml:"access_token_ttl"`      // default: 1h
	ShutdownGracePeriod Duration `toml:"shutdown_grace_period"` // default: 10s

	DatabaseFile   string `toml:"database_file"`    // default: ./wgportal.db
	PepperFile     string `toml:"pepper_file"`      // default: ./pepper
	SigningKeyFile string `toml:"signing_key_file"` // Ed25519 seed for access tokens (default: ./signing.key)
	PeerKeyFile    string `toml:"peer_key_file"`    // master key sealing peer private keys (default: ./peer.key)

	Log struct {
		Level      string `toml:"level"`  // debug, info, warn, error (default: info)
		Format     string `toml:"format"` // json or text (default: json)
		File       string `toml:"file"`   // optional rotated log file
		MaxSizeMB  int    `toml:"max_size_mb"`
		MaxBackups int    `toml:"max_backups"`
		MaxAgeDays int    `toml:"max_age_days"`
	} `toml:"log"`

	Accounts struct {
		PasswordMinLength      int    `toml:"password_min_length"`   // default: 8
		InviteMaxUsesLimit     int    `toml:"invite_max_uses_limit"` // default: 1000
		BootstrapAdminUsername string `toml:"bootstrap_admin_username"`
		BootstrapAdminPassword string `toml:"bootstrap_admin_password"` // empty generates one
	} `toml:"accounts"`

	WireGuard struct {
		NetworkRange      string   `toml:"network_range"`     // default: 10.0.0.0/24
		ServerPublicKey   string   `toml:"server_public_key"` // read from the interface when empty
		ServerHost        string   `toml:"server_host"`
		ServerPort        int      `toml:"server_port"` // default: 51820
		DNS               string   `toml:"dns"`         // comma separated (default: 1.1.1.1,8.8.8.8)
		Keepalive         int      `toml:"keepalive"`   // default: 25
		Interface         string   `toml:"interface"`   // default: wg0
		SyncMode          string   `toml:"sync_mode"`   // cli, wgctrl, noop (default: noop, cli when env=prod)
		SyncTimeout       Duration `toml:"sync_timeout"`
		KeyGen            string   `toml:"keygen"` // auto, cli, native (default: auto)
		KeyGenStrict      bool     `toml:"keygen_strict"`
		ReconcileInterval Duration `toml:"reconcile_interval"`   // 0 disables (default: 1m)
		MaxDevicesPerUser int      `toml:"max_devices_per_user"` // 0 is unlimited
	} `toml:"wireguard"`

	DBStatsInterval Duration `toml:"db_stats_interval"` // default: 15s

	// Parsed by Validate.
	subnet netip.Prefix
	dns    []netip.Addr
}

func defaultConfig() Config {
	var cfg Config
	cfg.Env = "dev"
	cfg.Port = 8080
	cfg.Issuer = "wgportal"
	cfg.AccessTokenTTL = Duration{time.Hour}
	cfg.ShutdownGracePeriod = Duration{10 * time.Second}
	cfg.DatabaseFile = "wgportal.db"
	cfg.PepperFile = "pepper"
	cfg.SigningKeyFile = "signing.key"
	cfg.PeerKeyFile = "peer.key"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Log.MaxSizeMB = 50
	cfg.Log.MaxBackups = 5
	cfg.Log.MaxAgeDays = 28
	cfg.Accounts.PasswordMinLength = service.DefaultPasswordMinLength
	cfg.Accounts.InviteMaxUsesLimit = service.DefaultInviteMaxUsesLimit
	cfg.Accounts.BootstrapAdminUsername = "admin"
	cfg.WireGuard.NetworkRange = "10.0.0.0/24"
	cfg.WireGuard.ServerPort = 51820
	cfg.WireGuard.DNS = "1.1.1.1,8.8.8.8"
	cfg.WireGuard.Keepalive = 25
	cfg.WireGuard.Interface = "wg0"
	cfg.WireGuard.SyncTimeout = Duration{wireguard.DefaultSyncTimeout}
	cfg.WireGuard.KeyGen = string(wireguard.KeyGenAuto)
	cfg.WireGuard.ReconcileInterval = Duration{time.Minute}
	cfg.DBStatsInterval = Duration{15 * time.Second}
	return cfg
}

// LoadConfig builds the configuration and validates it.
func LoadConfig() (Config, error) {
	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return fmt.Errorf("config file %s:%d:%d: %w", path, row, col, err)
		}
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.Issuer = getEnvOrDefault("ISSUER", cfg.Issuer)
	cfg.AccessTokenTTL.Duration = getEnvDurationOrDefault("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL.Duration)
	cfg.ShutdownGracePeriod.Duration = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod.Duration)

	cfg.DatabaseFile = getEnvOrDefault("DATABASE_FILE", cfg.DatabaseFile)
	cfg.PepperFile = getEnvOrDefault("PEPPER_FILE", cfg.PepperFile)
	cfg.SigningKeyFile = getEnvOrDefault("SIGNING_KEY_FILE", cfg.SigningKeyFile)
	cfg.PeerKeyFile = getEnvOrDefault("PEER_KEY_FILE", cfg.PeerKeyFile)

	cfg.Log.Level = getEnvOrDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnvOrDefault("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.File = getEnvOrDefault("LOG_FILE", cfg.Log.File)
	cfg.Log.MaxSizeMB = getEnvIntOrDefault("LOG_MAX_SIZE_MB", cfg.Log.MaxSizeMB)
	cfg.Log.MaxBackups = getEnvIntOrDefault("LOG_MAX_BACKUPS", cfg.Log.MaxBackups)
	cfg.Log.MaxAgeDays = getEnvIntOrDefault("LOG_MAX_AGE_DAYS", cfg.Log.MaxAgeDays)

	cfg.Accounts.PasswordMinLength = getEnvIntOrDefault("PASSWORD_MIN_LENGTH", cfg.Accounts.PasswordMinLength)
	cfg.Accounts.InviteMaxUsesLimit = getEnvIntOrDefault("INVITE_MAX_USES_LIMIT", cfg.Accounts.InviteMaxUsesLimit)
	cfg.Accounts.BootstrapAdminUsername = getEnvOrDefault("BOOTSTRAP_ADMIN_USERNAME", cfg.Accounts.BootstrapAdminUsername)
	cfg.Accounts.BootstrapAdminPassword = getEnvOrDefault("BOOTSTRAP_ADMIN_PASSWORD", cfg.Accounts.BootstrapAdminPassword)

	wg := &cfg.WireGuard
	wg.NetworkRange = getEnvOrDefault("WG_NETWORK_RANGE", wg.NetworkRange)
	wg.ServerPublicKey = getEnvOrDefault("WG_SERVER_PUBLIC_KEY", wg.ServerPublicKey)
	wg.ServerHost = getEnvOrDefault("WG_SERVER_HOST", wg.ServerHost)
	wg.ServerPort = getEnvIntOrDefault("WG_SERVER_PORT", wg.ServerPort)
	wg.DNS = getEnvOrDefault("WG_DNS", wg.DNS)
	wg.Keepalive = getEnvIntOrDefault("WG_KEEPALIVE", wg.Keepalive)
	wg.Interface = getEnvOrDefault("WG_INTERFACE", wg.Interface)
	wg.SyncMode = getEnvOrDefault("WG_SYNC_MODE", wg.SyncMode)
	wg.SyncTimeout.Duration = getEnvDurationOrDefault("WG_SYNC_TIMEOUT", wg.SyncTimeout.Duration)
	wg.KeyGen = getEnvOrDefault("WG_KEYGEN", wg.KeyGen)
	wg.KeyGenStrict = getEnvBoolOrDefault("WG_KEYGEN_STRICT", wg.KeyGenStrict)
	wg.ReconcileInterval.Duration = getEnvDurationOrDefault("WG_RECONCILE_INTERVAL", wg.ReconcileInterval.Duration)
	wg.MaxDevicesPerUser = getEnvIntOrDefault("WG_MAX_DEVICES_PER_USER", wg.MaxDevicesPerUser)

	cfg.DBStatsInterval.Duration = getEnvDurationOrDefault("DB_STATS_INTERVAL", cfg.DBStatsInterval.Duration)
}

// Validate checks the configuration and fills in derived values.
func (c *Config) Validate() error {
	var errs []error

	if c.WireGuard.SyncMode == "" {
		c.WireGuard.SyncMode = string(wireguard.SyncNoop)
		if c.Env == "prod" {
			c.WireGuard.SyncMode = string(wireguard.SyncCLI)
		}
	}
	switch wireguard.SyncMode(c.WireGuard.SyncMode) {
	case wireguard.SyncCLI, wireguard.SyncWgctrl, wireguard.SyncNoop:
	default:
		errs = append(errs, fmt.Errorf("WG_SYNC_MODE: unknown mode %q", c.WireGuard.SyncMode))
	}

	switch wireguard.KeyGenMode(c.WireGuard.KeyGen) {
	case wireguard.KeyGenAuto, wireguard.KeyGenCLI, wireguard.KeyGenNative:
	default:
		errs = append(errs, fmt.Errorf("WG_KEYGEN: unknown mode %q", c.WireGuard.KeyGen))
	}

	subnet, err := wireguard.ParseSubnet(c.WireGuard.NetworkRange)
	if err != nil {
		errs = append(errs, fmt.Errorf("WG_NETWORK_RANGE: %w", err))
	}
	c.subnet = subnet

	c.dns = c.dns[:0]
	for part := range strings.SplitSeq(c.WireGuard.DNS, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			errs = append(errs, fmt.Errorf("WG_DNS: %w", err))
			continue
		}
		c.dns = append(c.dns, addr)
	}

	if c.WireGuard.ServerPublicKey != "" {
		if _, err := wgtypes.ParseKey(c.WireGuard.ServerPublicKey); err != nil {
			errs = append(errs, fmt.Errorf("WG_SERVER_PUBLIC_KEY: %w", err))
		}
	}
	if c.WireGuard.ServerPort < 1 || c.WireGuard.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("WG_SERVER_PORT: %d out of range", c.WireGuard.ServerPort))
	}
	if c.WireGuard.MaxDevicesPerUser < 0 {
		errs = append(errs, errors.New("WG_MAX_DEVICES_PER_USER: must not be negative"))
	}
	if c.WireGuard.Keepalive < 0 {
		errs = append(errs, errors.New("WG_KEEPALIVE: must not be negative"))
	}
	if c.Accounts.PasswordMinLength < 1 {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH: must be positive"))
	}
	if c.Accounts.InviteMaxUsesLimit < 1 {
		errs = append(errs, errors.New("INVITE_MAX_USES_LIMIT: must be positive"))
	}
	if c.Env == "prod" && c.WireGuard.ServerHost == "" {
		errs = append(errs, errors.New("WG_SERVER_HOST: required when ENV=prod"))
	}
	if c.WireGuard.ServerHost == "" {
		c.WireGuard.ServerHost = "localhost"
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) Subnet() netip.Prefix { return c.subnet }

func (c Config) DNSServers() []netip.Addr { return c.dns }

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, ok := parseDuration(os.Getenv(key)); ok {
		return d
	}
	return defaultValue
}

// parseDuration accepts Go durations ("1h", "90s") and bare integers as
// seconds.
func parseDuration(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, true
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	return 0, false
}
