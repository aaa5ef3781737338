// Package httpapi is the HTTP surface of the server: routing, the bearer
// authentication gate, and the JSON request/response mapping onto the
// service layer.
package httpapi

import (
	"context"

	"github.com/avoronov/contenthub/internal/server/models"
)

// Identity is the authenticated caller bound into the request context.
type Identity struct {
	UserID   int64
	Username string
	Role     models.Role
}

type identityCtxKey struct{}

// WithIdentity binds an identity into the context. Binding happens at most
// once per request: if an identity is already present the context is
// returned unchanged.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	if _, ok := IdentityFromContext(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext returns the bound identity, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(*Identity)
	return id, ok && id != nil
}
