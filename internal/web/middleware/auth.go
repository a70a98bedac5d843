package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/museodigital/catalog/internal/catalog"
)

// userKey is the context key the authenticated user is stored under.
type userKey struct{}

// Authenticator resolves a bearer token to a user. Unknown tokens return
// catalog.ErrNotFound (any error is treated as authentication failure).
type Authenticator func(ctx context.Context, token string) (catalog.User, error)

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (catalog.User, bool) {
	u, ok := ctx.Value(userKey{}).(catalog.User)
	return u, ok
}

// TokenAuth validates the Authorization bearer token and stores the
// resolved user in the request context. Requests without a valid token are
// rejected with 401.
func TokenAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				slog.Warn("auth: missing token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			user, err := auth(r.Context(), token)
			if err != nil {
				slog.Warn("auth: invalid token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalToken resolves the bearer token when one is present but never
// rejects the request: anonymous and invalid-token callers pass through
// without a user in context. For public endpoints that behave differently
// for known users, like artifact download requests.
func OptionalToken(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := bearerToken(r); token != "" {
				if user, err := auth(r.Context(), token); err == nil {
					ctx := context.WithValue(r.Context(), userKey{}, user)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireWriter rejects authenticated users whose role does not allow
// catalog mutations. Must run after TokenAuth.
func RequireWriter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !user.CanWrite() {
			slog.Warn("auth: insufficient role",
				"path", r.URL.Path,
				"user", user.Username,
				"role", user.Role,
			)
			writeAuthError(w, http.StatusForbidden, "insufficient permissions")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"detail":"` + msg + `"}`))
}
