package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/internal/portal/telemetry"
	"github.com/aussiebroadwan/wgportal/pkg/httpx"
	"github.com/aussiebroadwan/wgportal/pkg/jwtx"
	"github.com/aussiebroadwan/wgportal/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/aussiebroadwan/wgportal/api/portal" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouteLimits are the rate limit tiers applied per route.
type RouteLimits struct {
	Strict   httpx.RateLimit
	Moderate httpx.RateLimit
	Lenient  httpx.RateLimit
}

// LimitsFromEnv returns the default tiers with RATELIMIT_STRICT_*,
// RATELIMIT_MODERATE_* and RATELIMIT_LENIENT_* overrides applied.
func LimitsFromEnv() RouteLimits {
	return RouteLimits{
		Strict:   httpx.ParseRateLimitFromEnv("STRICT", httpx.StrictLimit),
		Moderate: httpx.ParseRateLimitFromEnv("MODERATE", httpx.ModerateLimit),
		Lenient:  httpx.ParseRateLimitFromEnv("LENIENT", httpx.LenientLimit),
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	syncMode     string
	startTime    time.Time
	logger       *slog.Logger
	db           Pinger

	// Limits must be set before ApplyRoutes.
	Limits RouteLimits

	RegistrationService *service.RegistrationService
	UserService         *service.UserService
	InviteService       *service.InviteService
	ProvisioningService *service.ProvisioningService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion, syncMode string,
	db Pinger,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		syncMode:     syncMode,
		startTime:    time.Now(),
		logger:       logger,
		db:           db,
		Limits:       LimitsFromEnv(),
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		// Innermost, so the mux has set r.Pattern by the time it records.
		telemetry.HTTPMetrics,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerPublic()
	r.registerAccount()
	r.registerDevices()
	r.registerInvites()
	r.registerUsers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			wgportal API
//	@version		0.1.0
//	@description	Self service WireGuard provisioning. Users register with an invitation code, then add devices
//	@description	and download ready to use client configs. Admins manage invitation codes and accounts.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/wgportal
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				EdDSA signed access token from /v1/login. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authed wraps h with token verification, a scope check and a per user limit.
func (r *Router) authed(h http.HandlerFunc, limit httpx.RateLimit, scopes ...string) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope(scopes...),
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerPublic() {
	// Registration and login are the brute force targets, strict per IP.
	r.Mux.Handle("POST /v1/register",
		httpx.Chain(&RegisterHandler{RegistrationService: r.RegistrationService},
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(&LoginHandler{UserService: r.UserService},
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
}

func (r *Router) registerAccount() {
	h := &ChangePasswordHandler{UserService: r.UserService}
	r.Mux.Handle("POST /v1/account/password",
		r.authed(h.ServeHTTP, r.Limits.Strict, service.ScopeDevicesWrite))
}

func (r *Router) registerDevices() {
	h := &DevicesHandler{ProvisioningService: r.ProvisioningService}

	r.Mux.Handle("POST /v1/devices", r.authed(h.HandleCreate, r.Limits.Moderate, service.ScopeDevicesWrite))
	r.Mux.Handle("GET /v1/devices", r.authed(h.HandleList, r.Limits.Lenient, service.ScopeDevicesWrite))
	r.Mux.Handle("GET /v1/devices/{id}", r.authed(h.HandleGet, r.Limits.Lenient, service.ScopeDevicesWrite))
	r.Mux.Handle("DELETE /v1/devices/{id}", r.authed(h.HandleDelete, r.Limits.Moderate, service.ScopeDevicesWrite))
	r.Mux.Handle("GET /v1/devices/{id}/config", r.authed(h.HandleConfig, r.Limits.Moderate, service.ScopeDevicesWrite))
}

func (r *Router) registerInvites() {
	h := &InvitesHandler{InviteService: r.InviteService}

	r.Mux.Handle("GET /v1/admin/invites", r.authed(h.HandleList, r.Limits.Moderate, service.ScopeAdminRead))
	r.Mux.Handle("POST /v1/admin/invites", r.authed(h.HandleCreate, r.Limits.Moderate, service.ScopeAdminWrite))
	r.Mux.Handle("PATCH /v1/admin/invites/{id}", r.authed(h.HandleUpdate, r.Limits.Moderate, service.ScopeAdminWrite))
	r.Mux.Handle("DELETE /v1/admin/invites/{id}", r.authed(h.HandleDelete, r.Limits.Moderate, service.ScopeAdminWrite))
	r.Mux.Handle("GET /v1/admin/invites/{id}/usage", r.authed(h.HandleUsage, r.Limits.Moderate, service.ScopeAdminRead))
}

func (r *Router) registerUsers() {
	h := &UsersHandler{UserService: r.UserService}

	r.Mux.Handle("GET /v1/admin/users", r.authed(h.HandleList, r.Limits.Moderate, service.ScopeAdminRead))
	r.Mux.Handle("PATCH /v1/admin/users/{id}", r.authed(h.HandleUpdate, r.Limits.Moderate, service.ScopeAdminWrite))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.syncMode, r.db),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
