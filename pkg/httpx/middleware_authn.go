package httpx

import (
	"net/http"
	"strings"

	"github.com/cobaltgrid/foundation/pkg/jwtx"
	"github.com/cobaltgrid/foundation/pkg/slogx"
)

// Authn validates the bearer token and injects subject, session and scopes
// into the request context.
func Authn(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				slogx.FromContext(ctx).Warn("jwt verify failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = WithUserID(ctx, claims.Subject)
			ctx = WithSessionID(ctx, claims.SID)
			ctx = WithScopes(ctx, claims.Scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthn injects identity when a valid bearer token is present and
// lets the request through anonymously otherwise. Handlers branch on
// UserID(ctx) being empty.
func OptionalAuthn(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			header := r.Header.Get("Authorization")
			if strings.HasPrefix(header, "Bearer ") {
				raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
				if claims, err := v.Verify(raw); err == nil {
					ctx = WithUserID(ctx, claims.Subject)
					ctx = WithSessionID(ctx, claims.SID)
					ctx = WithScopes(ctx, claims.Scopes)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireScope rejects requests missing the given scope. Must run inside
// Authn.
func RequireScope(scope string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !HasScope(r.Context(), scope) {
				writeScopeError(w, scope)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RFC 6750 bearer error responses.

func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}

func writeScopeError(w http.ResponseWriter, scope string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope", scope="`+scope+`"`)
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte("insufficient_scope"))
}
