package httpx

import (
	"net/http"
	"strings"
)

// RequireAnyScope lets the request through when the token carries at least
// one of the required scopes. It must run after AuthnMiddleware.
func RequireAnyScope(required ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			for _, s := range required {
				if claims.HasScope(s) {
					next.ServeHTTP(w, r)
					return
				}
			}

			w.Header().Set("WWW-Authenticate",
				`Bearer error="insufficient_scope", scope="`+strings.Join(required, " ")+`"`)
			WriteError(w, http.StatusForbidden, "insufficient_scope", "token lacks a required scope")
		})
	}
}
