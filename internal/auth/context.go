// ABOUTME: Request context carrying the authenticated user and their project role
// ABOUTME: Populated by RequireUser and RequireProjectRole, read by handlers

package auth

import (
	"context"

	"github.com/2389/projectcamp/internal/store"
)

type userContextKey struct{}

type projectRoleContextKey struct{}

// WithUser returns a new context with the authenticated user attached.
func WithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext retrieves the authenticated user, returning nil if not present.
func UserFromContext(ctx context.Context) *store.User {
	u, _ := ctx.Value(userContextKey{}).(*store.User)
	return u
}

// MustUserFromContext retrieves the authenticated user, panicking if not present.
func MustUserFromContext(ctx context.Context) *store.User {
	u := UserFromContext(ctx)
	if u == nil {
		panic("auth: user not found in context")
	}
	return u
}

// WithProjectRole returns a new context carrying the caller's role in the
// project named by the request.
func WithProjectRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, projectRoleContextKey{}, role)
}

// ProjectRoleFromContext returns the role resolved by RequireProjectRole.
func ProjectRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(projectRoleContextKey{}).(string)
	return role, ok
}
