package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walletgate/walletgate/internal/token"
)

func TestIdentityFromClaims(t *testing.T) {
	t.Parallel()

	claims := &token.Claims{
		Subject: "user-1",
		DID:     "did:wba:example.com:user-1",
		Wallets: []token.Wallet{{Address: "0xabc", Chain: "eip155:1", Primary: true}},
		Roles:   []string{"user"},
	}

	identity := IdentityFromClaims(claims)

	assert.Equal(t, "user-1", identity.Subject)
	assert.Equal(t, "did:wba:example.com:user-1", identity.DID)
	assert.Equal(t, claims.Wallets, identity.Wallets)
	assert.Equal(t, []string{"user"}, identity.Roles)
}

func TestHasRole(t *testing.T) {
	t.Parallel()

	identity := &Identity{Roles: []string{"admin", "user"}}

	assert.True(t, identity.HasRole("admin"))
	assert.False(t, identity.HasRole("ops"))
	// Case-sensitive, exact match.
	assert.False(t, identity.HasRole("Admin"))

	assert.True(t, identity.HasAnyRole("ops", "user"))
	assert.False(t, identity.HasAnyRole("ops", "auditor"))
	assert.False(t, (&Identity{}).HasAnyRole("admin"))
}

func TestIdentityContext(t *testing.T) {
	t.Parallel()

	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	identity := &Identity{Subject: "user-1"}
	ctx := ContextWithIdentity(context.Background(), identity)

	got, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, identity, got)
}

func TestIdentityContextNil(t *testing.T) {
	t.Parallel()

	ctx := ContextWithIdentity(context.Background(), nil)

	_, ok := IdentityFromContext(ctx)
	assert.False(t, ok)
}
