package auth

import (
	"context"
	"strings"

	"blogPlatform/models"
)

// RequirePrincipal ensures a principal is present in context.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, errUnauthenticated
	}
	return p, nil
}

// RequireKind ensures the principal has the given kind (lowercased compare).
func RequireKind(ctx context.Context, kind string) (*Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.Kind != strings.ToLower(kind) {
		return nil, forbiddenf("only %s can perform this action", strings.ToLower(kind))
	}
	return p, nil
}

// RequireUser ensures the caller is an end user.
func RequireUser(ctx context.Context) (*Principal, error) {
	return RequireKind(ctx, KindUser)
}

// AdminLookup loads admin accounts for role checks.
type AdminLookup interface {
	GetByID(ctx context.Context, id int64) (*models.AdminUser, error)
}

// RequireAdmin ensures the caller is an admin principal AND that the underlying
// admin account exists and is active. This prevents spoofing by a stale or forged token.
func RequireAdmin(ctx context.Context, admins AdminLookup) (*Principal, *models.AdminUser, error) {
	p, err := RequireKind(ctx, KindAdmin)
	if err != nil {
		return nil, nil, err
	}
	if admins == nil {
		return p, nil, internalf("admin repository not configured")
	}
	a, err := admins.GetByID(ctx, p.ID)
	if err != nil {
		return nil, nil, wrapInternal(err, "get admin")
	}
	if a == nil || !a.IsActive {
		return nil, nil, forbiddenf("admin account is not active")
	}
	return p, a, nil
}

// RequireSuperAdmin is RequireAdmin plus a stored role of superadmin.
func RequireSuperAdmin(ctx context.Context, admins AdminLookup) (*Principal, *models.AdminUser, error) {
	p, a, err := RequireAdmin(ctx, admins)
	if err != nil {
		return nil, nil, err
	}
	if !a.IsSuperAdmin() {
		return nil, nil, forbiddenf("only superadmin can perform this action")
	}
	return p, a, nil
}
