package auth

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"blogPlatform/internal/apperr"
	"blogPlatform/internal/testutil"
	"blogPlatform/models"
	"blogPlatform/repository"
)

func TestRequireKindAndHelpers(t *testing.T) {
	ctx := WithPrincipal(context.Background(), &Principal{ID: 1, Name: "u1", Kind: KindUser})
	if _, err := RequireUser(ctx); err != nil {
		t.Fatalf("RequireUser: %v", err)
	}
	if _, err := RequireKind(ctx, KindAdmin); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for user acting as admin, got %v", err)
	}
	if _, err := RequirePrincipal(context.Background()); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized without principal, got %v", err)
	}
}

func TestRequireAdmin_WithDBCheck(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "authadmin")
	admins := repository.NewAdminRepository(d)
	modID := testutil.InsertAdmin(t, d, "mod", models.AdminRoleModerator, "x")
	rootID := testutil.InsertAdmin(t, d, "root", models.AdminRoleSuperAdmin, "x")

	// A forged principal for an admin id that does not exist.
	ghost := WithPrincipal(context.Background(), &Principal{ID: 999, Name: "ghost", Kind: KindAdmin})
	if _, _, err := RequireAdmin(ghost, admins); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for unknown admin, got %v", err)
	}

	mod := WithPrincipal(context.Background(), &Principal{ID: modID, Name: "mod", Kind: KindAdmin, Role: models.AdminRoleSuperAdmin})
	if _, _, err := RequireAdmin(mod, admins); err != nil {
		t.Fatalf("RequireAdmin moderator: %v", err)
	}
	// Role claim says superadmin but the stored role wins.
	if _, _, err := RequireSuperAdmin(mod, admins); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for moderator, got %v", err)
	}

	root := WithPrincipal(context.Background(), &Principal{ID: rootID, Name: "root", Kind: KindAdmin})
	if _, a, err := RequireSuperAdmin(root, admins); err != nil || a.Username != "root" {
		t.Fatalf("RequireSuperAdmin: %v %+v", err, a)
	}

	if err := admins.SetActive(context.Background(), rootID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, _, err := RequireAdmin(root, admins); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for inactive admin, got %v", err)
	}
}

func TestUnaryAuthInterceptor(t *testing.T) {
	secret := "s3cr3t"
	revoked := NewMemoryRevocationStore()
	interceptor := NewUnaryAuthInterceptor(secret, revoked, "/health")

	// Allowlisted path: no header, handler executes without principal.
	hCalled := false
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/health"}, func(ctx context.Context, req any) (any, error) {
		hCalled = true
		if _, ok := FromContext(ctx); ok {
			t.Fatalf("expected no principal on allowlisted path")
		}
		return 123, nil
	})
	if err != nil || !hCalled {
		t.Fatalf("allowlisted call failed: called=%v err=%v", hCalled, err)
	}

	// Protected path without token.
	_, err = interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x"}, func(ctx context.Context, req any) (any, error) {
		t.Fatalf("handler must not run")
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated, got %v", err)
	}

	// Valid token injects the principal.
	tok := testutil.GenerateJWTHS256(t, secret, 5, "root", KindAdmin, "superadmin")
	ctx := testutil.CtxWithBearer(context.Background(), tok)
	var got *Principal
	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x"}, func(ctx context.Context, req any) (any, error) {
		got, _ = FromContext(ctx)
		return nil, nil
	})
	if err != nil || got == nil || got.ID != 5 {
		t.Fatalf("expected principal, got %+v err=%v", got, err)
	}

	// Revoked token is refused.
	if err := revoked.Revoke(context.Background(), got.TokenID, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	_, err = interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x"}, func(ctx context.Context, req any) (any, error) {
		return nil, nil
	})
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected Unauthenticated for revoked token, got %v", err)
	}
}

func TestUnaryKindInterceptor(t *testing.T) {
	ic := NewUnaryKindInterceptor(KindAdmin, "/health")
	userCtx := WithPrincipal(context.Background(), &Principal{ID: 1, Name: "u", Kind: KindUser})
	_, err := ic(userCtx, nil, &grpc.UnaryServerInfo{FullMethod: "/x"}, func(ctx context.Context, req any) (any, error) { return nil, nil })
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	_, err = ic(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/health"}, func(ctx context.Context, req any) (any, error) { return nil, nil })
	if err != nil {
		t.Fatalf("allowlisted: %v", err)
	}
}

func TestToStatus(t *testing.T) {
	if got := status.Code(ToStatus(apperr.NotFound("x"))); got != codes.NotFound {
		t.Fatalf("got %v", got)
	}
	if got := status.Code(ToStatus(apperr.Conflict("x"))); got != codes.AlreadyExists {
		t.Fatalf("got %v", got)
	}
	if ToStatus(nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}
