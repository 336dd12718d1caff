package middleware

import (
	"net/http"
	"strings"

	"github.com/walletgate/walletgate/internal/apierror"
	"github.com/walletgate/walletgate/internal/config"
	"github.com/walletgate/walletgate/internal/observability"
)

// Allowed method and header lists advertised on cross-origin
// responses.
var (
	corsAllowMethods = strings.Join([]string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}, ", ")

	corsAllowHeaders = strings.Join([]string{
		HeaderOrigin, HeaderContentType, "Accept", "Authorization", HeaderXRequestID,
	}, ", ")
)

// OriginPolicy validates a request's declared origin against a fixed
// whitelist. Matching is exact string equality: no wildcards, no
// subdomain matching, no trailing-slash normalization.
type OriginPolicy struct {
	allowed     map[string]bool
	whitelist   []string
	errors      *apierror.Handler
	logger      observability.Logger
	development bool
}

// OriginPolicyOption is a functional option for the origin policy.
type OriginPolicyOption func(*OriginPolicy)

// WithOriginPolicyLogger sets the logger.
func WithOriginPolicyLogger(logger observability.Logger) OriginPolicyOption {
	return func(p *OriginPolicy) {
		p.logger = logger
	}
}

// NewOriginPolicy creates an origin policy from the whitelist. The
// whitelist is parsed once and is immutable for the process lifetime.
// Malformed entries are logged but kept; since matching is exact they
// simply never match a well-formed Origin header.
func NewOriginPolicy(whitelist []string, errorHandler *apierror.Handler, development bool, opts ...OriginPolicyOption) *OriginPolicy {
	p := &OriginPolicy{
		allowed:     make(map[string]bool, len(whitelist)),
		whitelist:   whitelist,
		errors:      errorHandler,
		logger:      observability.NopLogger(),
		development: development,
	}

	for _, opt := range opts {
		opt(p)
	}

	for _, origin := range whitelist {
		if !config.ValidOrigin(origin) {
			p.logger.Warn("malformed origin in whitelist",
				observability.String("origin", origin),
			)
		}
		p.allowed[origin] = true
	}

	return p
}

// Allowed reports whether the given origin may make cross-origin
// requests. An absent origin is always allowed: same-origin and
// non-browser clients do not declare one.
func (p *OriginPolicy) Allowed(origin string) bool {
	if origin == "" {
		return true
	}
	return p.allowed[origin]
}

// Middleware returns the origin-checking middleware. Allowed
// cross-origin requests get CORS headers; preflight requests are
// answered directly. Rejected origins terminate with 403 CORS_ERROR.
func (p *OriginPolicy) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get(HeaderOrigin)

			if !p.Allowed(origin) {
				if p.development {
					p.logger.Warn("origin rejected",
						observability.String("origin", origin),
						observability.Strings("whitelist", p.whitelist),
					)
				}
				p.errors.WriteError(w, r, p.rejectionError(origin))
				return
			}

			if origin != "" {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", HeaderOrigin)
				w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)

				// Only a cross-origin OPTIONS is a preflight; an
				// OPTIONS without an Origin header belongs to the
				// router.
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rejectionError builds the policy error. Which origin was rejected
// and what the whitelist contains are revealed only in development
// mode.
func (p *OriginPolicy) rejectionError(origin string) *apierror.Error {
	err := apierror.Forbidden(apierror.CodeCORSError, "origin not allowed")
	if p.development {
		err = err.WithDetails(map[string]any{
			"origin":    origin,
			"whitelist": p.whitelist,
		})
	}
	return err
}
