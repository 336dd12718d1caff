// Package authz enforces role-based access on authenticated requests.
package authz

import (
	"net/http"

	"github.com/walletgate/walletgate/internal/apierror"
	"github.com/walletgate/walletgate/internal/auth"
	"github.com/walletgate/walletgate/internal/observability"
)

// Guard produces role-checking middleware. It sits behind the
// authentication middleware and inspects the identity it attached.
type Guard struct {
	errors  *apierror.Handler
	logger  observability.Logger
	metrics *Metrics
}

// Option is a functional option for the guard.
type Option func(*Guard)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(g *Guard) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(g *Guard) {
		g.metrics = metrics
	}
}

// NewGuard creates a guard.
func NewGuard(errorHandler *apierror.Handler, opts ...Option) *Guard {
	g := &Guard{
		errors: errorHandler,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.metrics == nil {
		g.metrics = NewMetrics("walletgate")
	}

	return g
}

// RequireRoles returns middleware that admits a request only when the
// authenticated identity holds at least one of the given roles. Role
// comparison is case sensitive.
//
// A request with no identity in its context means the route was wired
// without authentication in front of this guard. That is a server-side
// wiring fault, but it is reported as 401 so the client retries with a
// credential rather than treating it as permanent.
func (g *Guard) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := auth.IdentityFromContext(r.Context())
			if !ok {
				g.logger.Error("role guard reached without identity, check middleware order",
					observability.String("path", r.URL.Path),
					observability.Strings("required_roles", roles),
				)
				g.metrics.RecordDenied("no_identity")
				g.errors.WriteError(w, r, apierror.Unauthorized(
					apierror.CodeUnauthorized, "authentication required"))
				return
			}

			if !identity.HasAnyRole(roles...) {
				g.logger.Warn("access denied",
					observability.String("subject", identity.Subject),
					observability.String("path", r.URL.Path),
					observability.Strings("required_roles", roles),
					observability.Strings("held_roles", identity.Roles),
				)
				g.metrics.RecordDenied("missing_role")
				g.errors.WriteError(w, r, apierror.Forbidden(
					apierror.CodeForbidden, "insufficient permissions"))
				return
			}

			g.metrics.RecordAllowed()
			next.ServeHTTP(w, r)
		})
	}
}
