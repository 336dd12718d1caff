package auth

import (
	"errors"
	"net/http"
	"strings"
)

// Sentinel errors for credential extraction. Distinct so clients can
// tell "no attempt" from "bad attempt".
var (
	// ErrNoAuthHeader indicates that no Authorization header was sent.
	ErrNoAuthHeader = errors.New("authorization header missing")

	// ErrMalformedAuthHeader indicates an Authorization header that
	// does not use the Bearer scheme.
	ErrMalformedAuthHeader = errors.New("authorization header malformed")
)

const bearerPrefix = "Bearer "

// ExtractBearer pulls the bearer credential out of a request's
// Authorization header.
func ExtractBearer(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrNoAuthHeader
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMalformedAuthHeader
	}
	credential := header[len(bearerPrefix):]
	if credential == "" {
		return "", ErrMalformedAuthHeader
	}
	return credential, nil
}
