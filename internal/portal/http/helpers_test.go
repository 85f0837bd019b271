package http

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/wgportal/internal/portal/domain"
	"github.com/aussiebroadwan/wgportal/internal/portal/service"
	"github.com/aussiebroadwan/wgportal/internal/portal/store/drivers/sqlite"
	"github.com/aussiebroadwan/wgportal/internal/portal/wireguard"
	"github.com/aussiebroadwan/wgportal/pkg/cryptox"
	"github.com/aussiebroadwan/wgportal/pkg/httpx"
	"github.com/aussiebroadwan/wgportal/pkg/idx"
	"github.com/aussiebroadwan/wgportal/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://vpn.test"

var generous = httpx.RateLimit{Requests: 10000, Window: time.Second, Burst: 10000}

type fakeSync struct {
	mu        sync.Mutex
	attachErr error
	detachErr error
}

func (f *fakeSync) Attach(context.Context, string, netip.Addr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attachErr
}

func (f *fakeSync) Detach(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detachErr
}

type testEnv struct {
	router *Router
	store  *sqlite.Store
	hasher *cryptox.Hasher
	signer *jwtx.Signer
	sync   *fakeSync
}

func newTestEnv(t *testing.T, subnet string) *testEnv {
	t.Helper()
	return newTestEnvWithLimits(t, subnet, RouteLimits{Strict: generous, Moderate: generous, Lenient: generous})
}

func newTestEnvWithLimits(t *testing.T, subnet string, limits RouteLimits) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "portal.db")))
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := jwtx.NewSigner(priv)
	require.NoError(t, err)

	sealer, err := cryptox.NewSealer([]byte("test-master-key"))
	require.NoError(t, err)

	env := &testEnv{
		store:  st,
		hasher: cryptox.NewHasher([]byte("test-pepper")),
		signer: signer,
		sync:   &fakeSync{},
	}

	invites := &service.InviteService{Store: st}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := NewRouter(jwtx.NewVerifier(testIssuer, signer.PublicKey()), "test", "noop", st, logger)
	r.Limits = limits
	r.InviteService = invites
	r.RegistrationService = &service.RegistrationService{Store: st, Invites: invites, Hasher: env.hasher}
	r.UserService = &service.UserService{
		Store:     st,
		Hasher:    env.hasher,
		Signer:    signer,
		Issuer:    testIssuer,
		AccessTTL: time.Hour,
		Sync:      env.sync,
	}
	r.ProvisioningService = &service.ProvisioningService{
		Store:  st,
		Keys:   wireguard.NativeKeyGen{},
		Sync:   env.sync,
		Sealer: sealer,
		Subnet: netip.MustParsePrefix(subnet),
		Server: service.ServerSettings{
			PublicKey:    "HIgo9xNzJMWLKASShiTqIybxZ0U3wGLiUeJ1PKf8ykw=",
			EndpointHost: "vpn.example.com",
			EndpointPort: 51820,
			DNS:          []netip.Addr{netip.MustParseAddr("1.1.1.1")},
			Keepalive:    25,
		},
	}
	r.ApplyRoutes()
	env.router = r
	return env
}

func (e *testEnv) user(t *testing.T, username string, admin bool) domain.User {
	t.Helper()
	hash, err := e.hasher.Hash("password123")
	require.NoError(t, err)
	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		IsAdmin:      admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.store.Users().CreateUser(context.Background(), u))
	return u
}

// token signs an access token for u directly, skipping /v1/login.
func (e *testEnv) token(t *testing.T, u domain.User) string {
	t.Helper()
	claims := jwtx.NewAccessClaims(testIssuer, u.ID, u.Username, service.ScopesFor(u), time.Hour, time.Now())
	tok, err := e.signer.Sign(claims)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, code, body.Error)
}

var _ http.Handler = (*Router)(nil)

// portalLimit allows n requests with no refill within a test run.
func portalLimit(n int) httpx.RateLimit {
	return httpx.RateLimit{Requests: n, Window: time.Hour, Burst: n}
}
