// Package auth implements credential extraction and verification for
// the request pipeline, and the per-request identity it produces.
package auth

import (
	"context"

	"github.com/walletgate/walletgate/internal/token"
)

// Identity is the per-request authenticated identity. It is derived
// from a verified credential, owned by the request's lifetime, and
// never persisted or shared across requests.
type Identity struct {
	// Subject is the unique identifier for the identity.
	Subject string `json:"sub"`

	// DID is the identity's decentralized identifier.
	DID string `json:"did,omitempty"`

	// Wallets lists the identity's linked wallets in claim order.
	Wallets []token.Wallet `json:"wallets,omitempty"`

	// Roles contains the roles granted to the identity.
	Roles []string `json:"roles,omitempty"`
}

// IdentityFromClaims derives an identity from verified claims.
func IdentityFromClaims(claims *token.Claims) *Identity {
	return &Identity{
		Subject: claims.Subject,
		DID:     claims.DID,
		Wallets: claims.Wallets,
		Roles:   claims.Roles,
	}
}

// HasRole checks if the identity has a specific role. Matching is
// case-sensitive and exact.
func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if the identity has any of the specified roles.
func (i *Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

// Context key type for identity.
type identityContextKey struct{}

// ContextWithIdentity attaches an identity to the context.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext extracts the identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(*Identity)
	return identity, ok && identity != nil
}
