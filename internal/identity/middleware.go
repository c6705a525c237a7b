package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/internal/http/respond"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// SessionCookie carries the bearer token for browser requests.
const SessionCookie = "session"

type ctxKey string

const trackerKey ctxKey = "quickie.identity_tracker"

// SessionResolver turns a bearer token into an identity.
type SessionResolver interface {
	CurrentSession(ctx context.Context, token string) (*gateway.Identity, error)
}

// WithTracker stores t in ctx.
func WithTracker(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, trackerKey, t)
}

// FromContext returns the request's tracker, or an anonymous one.
func FromContext(ctx context.Context) *Tracker {
	if t, ok := ctx.Value(trackerKey).(*Tracker); ok && t != nil {
		return t
	}
	return NewTracker(nil)
}

// TokenFromRequest reads the bearer token from the Authorization header or
// the session cookie.
func TokenFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Middleware resolves the caller's session and attaches a Tracker to the
// request. Invalid or revoked tokens are treated as anonymous.
func Middleware(resolver SessionResolver, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var current *gateway.Identity
			if token := TokenFromRequest(r); token != "" {
				id, err := resolver.CurrentSession(r.Context(), token)
				if err != nil {
					logger.Debug("session not resolved", "error", err, "path", r.URL.Path)
				} else {
					current = id
				}
			}
			ctx := WithTracker(r.Context(), NewTracker(current))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole redirects callers whose role ranks below required to
// redirectTo, remembering the requested path.
func RequireRole(required gateway.Role, redirectTo string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !FromContext(r.Context()).HasRole(required) {
				respond.Redirect(w, r, redirectTo)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).IsAuthenticated() {
			respond.Notify(w, http.StatusUnauthorized, respond.LevelError, "Please sign in to continue", respond.DismissForm)
			return
		}
		next.ServeHTTP(w, r)
	})
}
