package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/walletgate/walletgate/internal/apierror"
	"github.com/walletgate/walletgate/internal/observability"
)

// Recovery returns a middleware that converts handler panics into the
// standard error envelope. The panic value and stack are logged in
// full server-side; the client sees a masked 500 outside development
// mode.
func Recovery(logger observability.Logger, errors *apierror.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						observability.String("path", r.URL.Path),
						observability.String("method", r.Method),
						observability.Any("error", rec),
						observability.String("stack", string(debug.Stack())),
					)

					errors.WriteError(w, r, fmt.Errorf("panic: %v", rec))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
