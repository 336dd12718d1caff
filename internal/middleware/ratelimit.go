package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/walletgate/walletgate/internal/apierror"
	"github.com/walletgate/walletgate/internal/observability"
	"github.com/walletgate/walletgate/internal/ratelimit"
)

// defaultExemptPaths are never rate limited.
var defaultExemptPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	// Limiter makes the per-key decision. Required.
	Limiter ratelimit.Limiter

	// KeyFunc derives the client key. Defaults to
	// ratelimit.ClientKey.
	KeyFunc ratelimit.KeyFunc

	// ExemptPaths are paths checked against the request path for
	// unconditional exemption. Defaults to the health endpoints.
	ExemptPaths map[string]bool

	// Logger is used for limit-exceeded events.
	Logger observability.Logger
}

// RateLimit returns a middleware that bounds per-client request rates.
// Rate limit headers are emitted on every limited response, exceeded
// or not; exceeded requests terminate with 429 RATE_LIMIT_EXCEEDED and
// a retry hint.
func RateLimit(cfg RateLimitConfig, errors *apierror.Handler) func(http.Handler) http.Handler {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ratelimit.ClientKey
	}
	exempt := cfg.ExemptPaths
	if exempt == nil {
		exempt = defaultExemptPaths
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)

			result, err := cfg.Limiter.Allow(r.Context(), key)
			if err != nil {
				// A broken limiter backend must not take the
				// API down with it.
				logger.Error("rate limiter check failed",
					observability.String("key", key),
					observability.Error(err),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, result)

			if !result.Allowed {
				retryAfter := retryAfterSeconds(result)

				logger.Warn("rate limit exceeded",
					observability.String("key", key),
					observability.String("path", r.URL.Path),
					observability.Int("retry_after", retryAfter),
				)

				w.Header().Set(HeaderRetryAfter, strconv.Itoa(retryAfter))
				errors.WriteError(w, r, apierror.TooManyRequests("too many requests").
					WithDetails(map[string]any{"retryAfter": retryAfter}))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// setRateLimitHeaders emits the standard rate limit headers derived
// from the check result.
func setRateLimitHeaders(w http.ResponseWriter, result *ratelimit.Result) {
	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(result.Limit))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
	w.Header().Set(HeaderRateLimitReset, strconv.Itoa(int(math.Ceil(result.ResetAfter.Seconds()))))
}

// retryAfterSeconds converts the retry hint to whole seconds, rounding
// up so clients never retry early.
func retryAfterSeconds(result *ratelimit.Result) int {
	return int(math.Ceil(result.RetryAfter.Seconds()))
}
