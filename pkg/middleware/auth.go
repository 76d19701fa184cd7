package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/taskhive/taskhive/pkg/authz"
	"github.com/taskhive/taskhive/pkg/observability"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalResolver turns a bearer token into an authenticated principal.
// Implemented by auth.Service.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (*authz.Principal, error)
}

// PrincipalFromContext returns the authenticated principal, or nil when the
// request carried no valid credentials.
func PrincipalFromContext(ctx context.Context) *authz.Principal {
	p, _ := ctx.Value(principalKey).(*authz.Principal)
	return p
}

// WithPrincipal attaches a principal to the context; exported for handler
// tests.
func WithPrincipal(ctx context.Context, p *authz.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// AuthMiddleware resolves bearer tokens into principals. With optional set,
// requests without credentials pass through unauthenticated and the guard
// decides later; a present-but-invalid token is always rejected.
type AuthMiddleware struct {
	resolver PrincipalResolver
	optional bool
	logger   *observability.Logger
}

// NewAuthMiddleware creates the authentication middleware
func NewAuthMiddleware(resolver PrincipalResolver, optional bool, logger *observability.Logger) *AuthMiddleware {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &AuthMiddleware{resolver: resolver, optional: optional, logger: logger}
}

// Handler wraps an HTTP handler with token authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			writeAuthError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		p, err := m.resolver.ResolvePrincipal(r.Context(), token)
		if err != nil {
			m.logger.WithError(err).Debug("token rejected")
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// bearerToken extracts the token from "Authorization: Bearer <token>"
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// clientIP prefers X-Forwarded-For, then X-Real-IP, then the socket peer
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
