package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/taskdeck/pkg/contextkeys"
)

func TestIdentityFromClaims(t *testing.T) {
	identity := IdentityFromClaims(&Claims{Subject: "user-123", Email: "user@example.com"})
	assert.Equal(t, "user-123", identity.UserID)
	assert.Equal(t, "user@example.com", identity.Email)
}

func TestIdentityFromContext(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		identity := &Identity{UserID: "user-123"}
		ctx := contextkeys.WithIdentity(context.Background(), identity)
		assert.Equal(t, identity, IdentityFromContext(ctx))
	})

	t.Run("absent", func(t *testing.T) {
		assert.Nil(t, IdentityFromContext(context.Background()))
	})
}
