package httpx

import (
	"context"

	"github.com/aussiebroadwan/wgportal/pkg/jwtx"
)

type ctxKey int

const claimsKey ctxKey = iota

func WithClaims(ctx context.Context, c jwtx.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromContext returns the verified token claims stored by
// AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(jwtx.Claims)
	return c, ok
}

// UserID is the subject of the verified token, or "" when unauthenticated.
func UserID(ctx context.Context) string {
	c, _ := ClaimsFromContext(ctx)
	return c.Subject
}
