package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/walletgate/walletgate/internal/observability"
)

// RequestID returns a middleware that assigns each request a
// correlation id. An inbound X-Request-ID is reused, otherwise a fresh
// one is minted; either way the id is placed in the request context
// and echoed on the response.
func RequestID() func(http.Handler) http.Handler {
	return RequestIDWithGenerator(func() string {
		return uuid.New().String()
	})
}

// RequestIDWithGenerator returns the request id middleware with a
// custom id generator.
func RequestIDWithGenerator(generator func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderXRequestID)
			if requestID == "" {
				requestID = generator()
			}

			ctx := observability.ContextWithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)

			w.Header().Set(HeaderXRequestID, requestID)

			next.ServeHTTP(w, r)
		})
	}
}
