package helpers

import (
	"context"

	"finitefield.org/travel-admin/internal/admin/httpserver/middleware"
	"finitefield.org/travel-admin/internal/admin/rbac"
)

// HasCapability reports whether the authenticated user possesses the capability.
// Empty capabilities are always granted so unconstrained actions stay visible.
func HasCapability(ctx context.Context, capability rbac.Capability) bool {
	return middleware.Can(ctx, capability)
}

// UserEmail returns the signed-in staff member's email, or their uid when no email is known.
func UserEmail(ctx context.Context) string {
	user, ok := middleware.UserFromContext(ctx)
	if !ok {
		return ""
	}
	if user.Email != "" {
		return user.Email
	}
	return user.UID
}
