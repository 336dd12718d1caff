package token

import "errors"

// Sentinel errors for token operations. Verification failures are kept
// distinct internally but callers should present them to clients as a
// single invalid-token outcome.
var (
	// ErrNoSecret indicates that no signing secret was provided.
	ErrNoSecret = errors.New("signing secret not configured")

	// ErrMalformedToken indicates a structurally invalid token
	// (wrong segment count or undecodable segment).
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignature indicates that the token signature does not
	// match the expected HMAC.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired indicates that the token expiry has passed.
	ErrTokenExpired = errors.New("token expired")
)

// IsVerificationError reports whether err is one of the verification
// failures that map to a single client-visible invalid-token code.
func IsVerificationError(err error) bool {
	return errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrTokenExpired)
}
