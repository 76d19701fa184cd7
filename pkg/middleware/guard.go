package middleware

import (
	"net/http"

	"github.com/taskhive/taskhive/pkg/authz"
	"github.com/taskhive/taskhive/pkg/observability"
)

// Guard turns route requirements into HTTP middleware. A route with no
// requirement passes everyone through, including unauthenticated callers;
// otherwise a missing principal is 401 and a failed check is 403.
type Guard struct {
	metrics *observability.Metrics
}

// NewGuard creates the authorization guard
func NewGuard(metrics *observability.Metrics) *Guard {
	return &Guard{metrics: metrics}
}

// Require wraps a handler with the given requirement
func (g *Guard) Require(req authz.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if req.IsZero() {
				next.ServeHTTP(w, r)
				return
			}

			p := PrincipalFromContext(r.Context())
			if p == nil {
				g.record(false)
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !authz.Authorize(req, p) {
				g.record(false)
				writeAuthError(w, http.StatusForbidden, "insufficient privileges")
				return
			}

			g.record(true)
			next.ServeHTTP(w, r)
		})
	}
}

func (g *Guard) record(allowed bool) {
	if g.metrics != nil {
		g.metrics.RecordAuthzDecision(allowed, "route_guard")
	}
}
