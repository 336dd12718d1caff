// Package token implements the signed credential codec.
//
// A credential is three dot-joined segments: a JSON header, a JSON
// claims payload, and an HMAC-SHA256 signature over the first two,
// each encoded with padding-free URL-safe base64. The format carries
// exactly two guarantees: integrity (the signature) and expiry.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTTL is the credential lifetime used when no TTL is
	// configured or the configured value cannot be parsed.
	DefaultTTL = 24 * time.Hour

	segmentCount = 3
)

// header is the fixed credential header.
type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Wallet describes a linked wallet in the credential payload.
// Order within the claims is preserved.
type Wallet struct {
	Address string `json:"address"`
	Chain   string `json:"chain,omitempty"`
	Primary bool   `json:"primary,omitempty"`
}

// Claims is the credential payload.
type Claims struct {
	// Subject is the unique identifier for the credential holder.
	Subject string `json:"sub"`

	// DID is the holder's decentralized identifier.
	DID string `json:"did,omitempty"`

	// Wallets lists the holder's linked wallets.
	Wallets []Wallet `json:"wallets,omitempty"`

	// Roles contains the role strings granted to the holder.
	Roles []string `json:"roles,omitempty"`

	// IssuedAt is the issuance time in epoch seconds.
	IssuedAt int64 `json:"iat"`

	// ExpiresAt is the expiry time in epoch seconds. A credential is
	// valid only while ExpiresAt is strictly in the future.
	ExpiresAt int64 `json:"exp"`
}

// encoding is the padding-free URL-safe base64 variant used for all
// three segments.
var encoding = base64.RawURLEncoding

// Issue creates a signed credential for the given claims. IssuedAt and
// ExpiresAt are computed from the wall clock and ttl, overwriting any
// values already present in claims. The ttl is applied as given, so a
// zero ttl produces an immediately expired credential; use ParseTTL to
// get the configured default. Credentials are immutable after issuance;
// renewal means issuing a new one.
func Issue(claims Claims, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}

	now := time.Now()
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(ttl).Unix()

	headerJSON, err := json.Marshal(header{Alg: "HS256", Typ: "credential"})
	if err != nil {
		return "", fmt.Errorf("encoding header: %w", err)
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encoding claims: %w", err)
	}

	signingInput := encoding.EncodeToString(headerJSON) + "." + encoding.EncodeToString(payloadJSON)
	signature := sign(signingInput, secret)

	return signingInput + "." + signature, nil
}

// Verify checks a credential's signature and expiry and returns its
// claims. The payload is decoded only after the signature matches.
// Structural defects, signature mismatches, and expiry all return
// errors rather than panicking; see IsVerificationError.
func Verify(tok, secret string) (*Claims, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}

	parts := strings.Split(tok, ".")
	if len(parts) != segmentCount {
		return nil, fmt.Errorf("%w: expected %d segments, got %d", ErrMalformedToken, segmentCount, len(parts))
	}

	signingInput := parts[0] + "." + parts[1]
	expected := sign(signingInput, secret)
	if !hmac.Equal([]byte(expected), []byte(parts[2])) {
		return nil, ErrInvalidSignature
	}

	payloadJSON, err := encoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	var claims Claims
	if err := json.Unmarshal(payloadJSON, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.ExpiresAt <= time.Now().Unix() {
		return nil, ErrTokenExpired
	}

	return &claims, nil
}

// sign computes the encoded HMAC-SHA256 signature over the signing input.
func sign(signingInput, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signingInput))
	return encoding.EncodeToString(mac.Sum(nil))
}

// ParseTTL parses a credential lifetime of the form "Nh" (hours) or
// "Nd" (days). Empty or unparsable values fall back to DefaultTTL.
func ParseTTL(s string) time.Duration {
	if len(s) < 2 {
		return DefaultTTL
	}

	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value < 0 {
		return DefaultTTL
	}

	switch s[len(s)-1] {
	case 'h':
		return time.Duration(value) * time.Hour
	case 'd':
		return time.Duration(value) * 24 * time.Hour
	default:
		return DefaultTTL
	}
}
