package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/wgportal/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimit allows Requests per Window with up to Burst at once.
type RateLimit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Presets, per client key.
var (
	// StrictLimit guards credential and registration endpoints.
	StrictLimit = RateLimit{Requests: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit is for writes such as adding a device.
	ModerateLimit = RateLimit{Requests: 20, Window: time.Minute, Burst: 20}

	LenientLimit = RateLimit{Requests: 100, Window: time.Minute, Burst: 100}
)

// ParseRateLimitFromEnv overrides def from RATELIMIT_{prefix}_REQUESTS,
// RATELIMIT_{prefix}_WINDOW_SEC and RATELIMIT_{prefix}_BURST. Invalid or
// non-positive values are ignored.
func ParseRateLimitFromEnv(prefix string, def RateLimit) RateLimit {
	cfg := def
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		cfg.Requests = n
	}
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnv("RATELIMIT_" + prefix + "_BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnv(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (c RateLimit) limit() rate.Limit {
	if c.Requests <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.Requests) / c.Window.Seconds())
}

// KeyFunc groups requests into rate limit buckets. An empty key bypasses the
// limiter.
type KeyFunc func(*http.Request) string

// ClientIP is the first X-Forwarded-For hop, then X-Real-IP, then the peer
// address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientUser keys by authenticated subject and falls back to the client IP.
func ClientUser(r *http.Request) string {
	if id := UserID(r.Context()); id != "" {
		return "user:" + id
	}
	return "ip:" + ClientIP(r)
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// RateLimiter keeps one token bucket per key. Buckets idle for longer than
// ten windows are dropped.
type RateLimiter struct {
	cfg RateLimit
	key KeyFunc
	now func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func NewRateLimiter(cfg RateLimit, key KeyFunc) *RateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = max(cfg.Requests, 1)
	}
	return &RateLimiter{
		cfg:     cfg,
		key:     key,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether a request for key may proceed, and if not, how long
// until it could.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.cfg.limit(), l.cfg.Burst)}
		l.buckets[key] = b
	}
	b.seen = now

	if b.lim.AllowN(now, 1) {
		return true, 0
	}
	r := b.lim.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

func (l *RateLimiter) sweep(now time.Time) {
	idle := 10 * l.cfg.Window
	if idle <= 0 || now.Sub(l.lastSweep) < l.cfg.Window {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.seen) > idle {
			delete(l.buckets, k)
		}
	}
}

// Middleware rejects over-limit requests with 429 and a Retry-After header.
func (l *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.key(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, wait := l.Allow(key)
			if !ok {
				secs := max(int(wait.Round(time.Second)/time.Second), 1)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				slogx.FromContext(r.Context()).Warn("rate limit exceeded", "key", key, "retry_after", secs)
				WriteError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP is shorthand for NewRateLimiter(cfg, ClientIP).Middleware().
func RateLimitByIP(cfg RateLimit) Middleware {
	return NewRateLimiter(cfg, ClientIP).Middleware()
}

func RateLimitByUser(cfg RateLimit) Middleware {
	return NewRateLimiter(cfg, ClientUser).Middleware()
}
