package auth

import (
	"context"

	"classquiz/internal/models"
)

type contextKey int

const identityKey contextKey = iota

// Identity is the authenticated caller, extracted from the JWT once per
// request and passed on via context. Handlers trust it; nothing downstream
// re-authenticates.
type Identity struct {
	UserID uint
	Role   models.Role
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
