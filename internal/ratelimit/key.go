package ratelimit

import (
	"net"
	"net/http"
	"strings"
)

// UnknownClientKey buckets all clients whose address cannot be
// determined. A shared bucket is deliberately coarse: it is a
// documented default, not a security guarantee.
const UnknownClientKey = "unknown"

// KeyFunc extracts a rate limit key from an HTTP request.
type KeyFunc func(r *http.Request) string

// ClientKey derives the rate limit key for a request: the first
// X-Forwarded-For value when present, else the transport-layer
// address, else UnknownClientKey.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.Index(xff, ","); idx != -1 {
			first = xff[:idx]
		}
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}

	return UnknownClientKey
}
