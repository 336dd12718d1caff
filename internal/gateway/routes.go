package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AuthMode selects how a route authenticates.
type AuthMode int

const (
	// AuthNone attaches no authentication.
	AuthNone AuthMode = iota

	// AuthRequired rejects requests without a valid credential.
	AuthRequired

	// AuthOptional verifies a credential when present but lets
	// anonymous requests proceed.
	AuthOptional
)

// RouteOptions configures per-route security.
type RouteOptions struct {
	// Auth selects the authentication mode. Defaults to AuthNone.
	Auth AuthMode

	// Roles, when non-empty, require the identity to hold at least
	// one of them. Implies AuthRequired semantics: routes with roles
	// and AuthNone would always reject, so bind them with
	// AuthRequired.
	Roles []string
}

// Handle registers a route behind the pipeline with the given
// security options. Handlers receive the identity through the request
// context when authentication ran.
func (g *Gateway) Handle(method, path string, handler http.Handler, opts RouteOptions) {
	g.engine.Handle(method, path, g.wrap(handler, opts))
}

// HandleFunc is Handle for plain handler functions.
func (g *Gateway) HandleFunc(method, path string, handler http.HandlerFunc, opts RouteOptions) {
	g.Handle(method, path, handler, opts)
}

// wrap binds the route-level middleware around the handler, innermost
// last: authentication runs before the role guard.
func (g *Gateway) wrap(handler http.Handler, opts RouteOptions) gin.HandlerFunc {
	h := handler

	if len(opts.Roles) > 0 {
		h = g.guard.RequireRoles(opts.Roles...)(h)
	}

	switch opts.Auth {
	case AuthRequired:
		h = g.authenticator.Middleware()(h)
	case AuthOptional:
		h = g.authenticator.OptionalMiddleware()(h)
	}

	return gin.WrapH(h)
}
