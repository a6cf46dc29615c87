package shared

import (
	"context"

	"github.com/tanktools/tanktools/internal/rbac"
)

type permissionsContextKey struct{}

// ContextWithPermissions stores the resolved permissions in context.
func ContextWithPermissions(ctx context.Context, perms rbac.EffectivePermissions) context.Context {
	return context.WithValue(ctx, permissionsContextKey{}, perms)
}

// PermissionsFromContext extracts the resolved permissions from context.
func PermissionsFromContext(ctx context.Context) (rbac.EffectivePermissions, bool) {
	perms, ok := ctx.Value(permissionsContextKey{}).(rbac.EffectivePermissions)
	return perms, ok
}
