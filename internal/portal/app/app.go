package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/wgportal/internal/portal/http"
	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/internal/portal/store/drivers/sqlite"
	"github.com/aussiebroadwan/wgportal/internal/portal/telemetry"
	"github.com/aussiebroadwan/wgportal/internal/portal/wireguard"
	"github.com/aussiebroadwan/wgportal/pkg/slogx"
	"golang.zx2c4.com/wireguard/wgctrl"
)

const (
	// BuildVersion is overridden at build time with -ldflags.
	BuildVersion = "v0.1.0"
)

// Application owns every long lived dependency of the portal.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db   *sqlite.Store
	keys *Keys

	runner   wireguard.CommandRunner
	wgClient *wgctrl.Client // only in wgctrl mode
	keygen   wireguard.KeyPairPort
	sync     wireguard.PeerSyncPort

	userService         *service.UserService
	inviteService       *service.InviteService
	registrationService *service.RegistrationService
	provisioningService *service.ProvisioningService
	reconciler          *service.SyncReconciler // nil when disabled

	stopStats context.CancelFunc

	server *http.Server
	router *httpapi.Router
}

// New creates the application and everything it depends on. The bootstrap
// admin is created here so a failing first start never serves traffic.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service:    "wgportal",
			Version:    BuildVersion,
			Env:        cfg.Env,
			Level:      cfg.Log.Level,
			Format:     cfg.Log.Format,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
		}),
		runner: wireguard.ExecRunner{},
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keys, err := InitKeys(cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize keys: %w", err)
	}
	app.keys = keys

	ctx := context.Background()
	if err := app.initWireGuard(ctx); err != nil {
		app.closeResources()
		return nil, err
	}

	app.initServices()

	if err := app.bootstrap(ctx); err != nil {
		app.closeResources()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	if app.reconciler != nil {
		app.reconciler.Start()
	}

	statsCtx, cancel := context.WithCancel(context.Background())
	app.stopStats = cancel
	telemetry.StartDBStatsCollector(statsCtx, app.db.DB(), app.cfg.DBStatsInterval.Duration)

	app.logger.Info("wgportal starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"subnet", app.cfg.Subnet().String(),
		"sync_mode", app.cfg.WireGuard.SyncMode,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops background workers and closes
// the database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down wgportal...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod.Duration)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.reconciler != nil {
		app.reconciler.Stop()
	}
	if app.stopStats != nil {
		app.stopStats()
	}

	if err := app.closeResources(); err != nil {
		return err
	}

	app.logger.Info("wgportal stopped")
	return nil
}

func (app *Application) closeResources() error {
	if app.wgClient != nil {
		if err := app.wgClient.Close(); err != nil {
			app.logger.Error("error closing wgctrl client", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "file", app.cfg.DatabaseFile)
	return nil
}

// initWireGuard selects the key generator and the interface sync adapter,
// and resolves the server public key if it was not configured.
func (app *Application) initWireGuard(ctx context.Context) error {
	wg := app.cfg.WireGuard

	keygen, err := wireguard.NewKeyGenerator(ctx,
		wireguard.KeyGenMode(wg.KeyGen), wg.KeyGenStrict,
		app.runner, app.logger,
		telemetry.KeygenDegradedTotal.Inc,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize key generator: %w", err)
	}
	app.keygen = keygen

	var reader wireguard.DeviceReader
	switch wireguard.SyncMode(wg.SyncMode) {
	case wireguard.SyncWgctrl:
		client, err := wgctrl.New()
		if err != nil {
			return fmt.Errorf("failed to open wgctrl client: %w", err)
		}
		app.wgClient = client
		reader = client
		app.sync = &wireguard.WgctrlSync{Interface: wg.Interface, Client: client, Timeout: wg.SyncTimeout.Duration}
	case wireguard.SyncCLI:
		app.sync = &wireguard.CLISync{Interface: wg.Interface, Runner: app.runner, Timeout: wg.SyncTimeout.Duration}
	default:
		app.sync = wireguard.NoopSync{}
		app.logger.Warn("interface sync disabled, peers are only recorded in the database")
	}

	if app.cfg.WireGuard.ServerPublicKey == "" {
		if wireguard.SyncMode(wg.SyncMode) == wireguard.SyncNoop {
			app.logger.Warn("WG_SERVER_PUBLIC_KEY not set, client configs will have an empty peer key")
			return nil
		}
		pub, err := wireguard.InterfacePublicKey(ctx, wg.Interface, reader, app.runner)
		if err != nil {
			return fmt.Errorf("failed to read server public key from %s: %w", wg.Interface, err)
		}
		app.cfg.WireGuard.ServerPublicKey = pub
		app.logger.Info("server public key read from interface", "interface", wg.Interface)
	}
	return nil
}

func (app *Application) initServices() {
	wg := app.cfg.WireGuard

	app.userService = &service.UserService{
		Store:             app.db,
		Hasher:            app.keys.Hasher,
		Signer:            app.keys.Signer,
		Issuer:            app.cfg.Issuer,
		AccessTTL:         app.cfg.AccessTokenTTL.Duration,
		PasswordMinLength: app.cfg.Accounts.PasswordMinLength,
		Sync:              app.sync,
	}
	app.inviteService = &service.InviteService{
		Store:        app.db,
		MaxUsesLimit: app.cfg.Accounts.InviteMaxUsesLimit,
	}
	app.registrationService = &service.RegistrationService{
		Store:             app.db,
		Invites:           app.inviteService,
		Hasher:            app.keys.Hasher,
		PasswordMinLength: app.cfg.Accounts.PasswordMinLength,
	}
	app.provisioningService = &service.ProvisioningService{
		Store:  app.db,
		Keys:   app.keygen,
		Sync:   app.sync,
		Sealer: app.keys.Sealer,
		Subnet: app.cfg.Subnet(),
		Server: service.ServerSettings{
			PublicKey:    wg.ServerPublicKey,
			EndpointHost: wg.ServerHost,
			EndpointPort: wg.ServerPort,
			DNS:          app.cfg.DNSServers(),
			Keepalive:    wg.Keepalive,
		},
		MaxDevicesPerUser: wg.MaxDevicesPerUser,
	}

	if wg.ReconcileInterval.Duration > 0 && wireguard.SyncMode(wg.SyncMode) != wireguard.SyncNoop {
		app.reconciler = service.NewSyncReconciler(app.db, app.sync, app.logger, wg.ReconcileInterval.Duration)
	}
}

func (app *Application) bootstrap(ctx context.Context) error {
	username := app.cfg.Accounts.BootstrapAdminUsername
	created, generated, err := app.userService.Bootstrap(ctx, username, app.cfg.Accounts.BootstrapAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	if !created {
		return nil
	}
	if generated != "" {
		// Shown once. The hash is all that is stored.
		app.logger.Warn("bootstrap admin created with generated password",
			"username", username,
			"password", generated,
		)
		return nil
	}
	app.logger.Info("bootstrap admin created", "username", username)
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys.Verifier,
		BuildVersion,
		app.cfg.WireGuard.SyncMode,
		app.db,
		app.logger,
	)

	router.RegistrationService = app.registrationService
	router.UserService = app.userService
	router.InviteService = app.inviteService
	router.ProvisioningService = app.provisioningService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
