package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/walletgate/walletgate/internal/apierror"
	"github.com/walletgate/walletgate/internal/observability"
	"github.com/walletgate/walletgate/internal/token"
)

// Authenticator verifies request credentials and attaches the
// resulting identity to the request context.
type Authenticator struct {
	secret  string
	errors  *apierror.Handler
	logger  observability.Logger
	metrics *Metrics
}

// Option is a functional option for the authenticator.
type Option func(*Authenticator)

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(a *Authenticator) {
		a.metrics = metrics
	}
}

// NewAuthenticator creates an authenticator. An empty secret is
// accepted here: the misconfiguration is surfaced per request as a
// SERVER_CONFIG_ERROR rather than a silent bypass.
func NewAuthenticator(secret string, errorHandler *apierror.Handler, opts ...Option) *Authenticator {
	a := &Authenticator{
		secret: secret,
		errors: errorHandler,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.metrics == nil {
		a.metrics = NewMetrics("walletgate")
	}

	return a
}

// Authenticate verifies the request's bearer credential and returns
// the derived identity.
func (a *Authenticator) Authenticate(r *http.Request) (*Identity, error) {
	creds, err := ExtractBearer(r)
	if err != nil {
		return nil, err
	}

	if a.secret == "" {
		return nil, token.ErrNoSecret
	}

	claims, err := token.Verify(creds, a.secret)
	if err != nil {
		return nil, err
	}

	return IdentityFromClaims(claims), nil
}

// Middleware returns the middleware for protected routes. Requests
// without a valid credential are rejected; on success the identity is
// attached to the request context.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			identity, err := a.Authenticate(r)
			if err != nil {
				a.metrics.RecordFailure(failureReason(err))
				a.rejectAuth(w, r, err)
				return
			}

			a.metrics.RecordSuccess(time.Since(start))

			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalMiddleware returns the middleware for public routes that
// personalize when a credential is present. It never rejects: only a
// successful verification populates the identity, every other outcome
// lets the request proceed anonymously.
func (a *Authenticator) OptionalMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := a.Authenticate(r)
			if err != nil {
				if !errors.Is(err, ErrNoAuthHeader) {
					a.logger.Debug("optional authentication failed",
						observability.String("path", r.URL.Path),
						observability.Error(err),
					)
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// rejectAuth renders an authentication failure through the envelope.
func (a *Authenticator) rejectAuth(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNoAuthHeader):
		a.errors.WriteError(w, r, apierror.Unauthorized(
			apierror.CodeMissingAuthHeader, "authorization header missing"))
	case errors.Is(err, ErrMalformedAuthHeader):
		a.errors.WriteError(w, r, apierror.Unauthorized(
			apierror.CodeInvalidAuthFormat, "authorization header must use the Bearer scheme"))
	case errors.Is(err, token.ErrNoSecret):
		// Startup misconfiguration, not a client fault.
		a.logger.Error("signing secret not configured, rejecting authenticated request",
			observability.String("path", r.URL.Path),
		)
		a.errors.WriteError(w, r, err)
	default:
		// All verification failures collapse to one outcome.
		a.errors.WriteError(w, r, err)
	}
}

// failureReason maps an authentication error to a metrics label.
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNoAuthHeader):
		return "missing_header"
	case errors.Is(err, ErrMalformedAuthHeader):
		return "malformed_header"
	case errors.Is(err, token.ErrNoSecret):
		return "no_secret"
	case errors.Is(err, token.ErrTokenExpired):
		return "expired"
	default:
		return "invalid_token"
	}
}
