package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/wgportal/pkg/httpx"
	"github.com/aussiebroadwan/wgportal/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	t.Run("remote addr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		require.Equal(t, "192.168.1.1", httpx.ClientIP(req))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")
		require.Equal(t, "203.0.113.1", httpx.ClientIP(req))
	})

	t.Run("X-Real-IP", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.ClientIP(req))
	})
}

func TestClientUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.1.1:1"
	require.Equal(t, "ip:10.1.1.1", httpx.ClientUser(req))

	claims := jwtx.Claims{}
	claims.Subject = "u1"
	req = req.WithContext(httpx.WithClaims(req.Context(), claims))
	require.Equal(t, "user:u1", httpx.ClientUser(req))
}

func TestRateLimiterBurstThenReject(t *testing.T) {
	l := httpx.NewRateLimiter(httpx.RateLimit{Requests: 3, Window: time.Minute, Burst: 3}, httpx.ClientIP)

	for i := range 3 {
		ok, _ := l.Allow("a")
		require.True(t, ok, "request %d", i)
	}
	ok, wait := l.Allow("a")
	require.False(t, ok)
	require.Greater(t, wait, time.Duration(0))

	// Buckets are per key.
	ok, _ = l.Allow("b")
	require.True(t, ok)
}

func TestRateLimitMiddleware(t *testing.T) {
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), httpx.RateLimitByIP(httpx.RateLimit{Requests: 1, Window: time.Minute, Burst: 1}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/login", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusNoContent, do().Code)

	rr := do()
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))
	require.Contains(t, rr.Body.String(), "rate_limit_exceeded")
}

func TestUnlimitedConfig(t *testing.T) {
	l := httpx.NewRateLimiter(httpx.RateLimit{}, httpx.ClientIP)
	for range 100 {
		ok, _ := l.Allow("k")
		require.True(t, ok)
	}
}

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_STRICT_REQUESTS", "9")
	t.Setenv("RATELIMIT_STRICT_WINDOW_SEC", "30")
	t.Setenv("RATELIMIT_STRICT_BURST", "-1")

	got := httpx.ParseRateLimitFromEnv("STRICT", httpx.StrictLimit)
	require.Equal(t, 9, got.Requests)
	require.Equal(t, 30*time.Second, got.Window)
	require.Equal(t, httpx.StrictLimit.Burst, got.Burst)

	require.Equal(t, httpx.LenientLimit, httpx.ParseRateLimitFromEnv("UNSET", httpx.LenientLimit))
}
