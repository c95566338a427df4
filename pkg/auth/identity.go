package auth

import (
	"context"

	"github.com/platinummonkey/taskdeck/pkg/contextkeys"
)

// Identity is the verified caller identity for a single request. It is
// constructed from a validated claim set, lives only in that request's
// context, and is never persisted or shared across requests.
type Identity struct {
	// UserID is the subject identifier from the token, matching the
	// user.id column of the external identity provider (TEXT/UUID).
	UserID string `json:"user_id"`
	// Email is optional and informational only. It must never be used
	// for ownership decisions.
	Email string `json:"email,omitempty"`
}

// IdentityFromClaims builds a resolved identity from a verified claim
// set. The claim set must already have passed Verifier.Verify, so the
// subject is guaranteed to be present.
func IdentityFromClaims(claims *Claims) *Identity {
	return &Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
	}
}

// IdentityFromContext retrieves the resolved identity from a request
// context. Returns nil when the request did not pass the auth
// middleware (unprotected routes).
func IdentityFromContext(ctx context.Context) *Identity {
	identity, ok := ctx.Value(contextkeys.IdentityKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}
