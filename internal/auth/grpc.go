package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"blogPlatform/internal/apperr"
)

// NewUnaryAuthInterceptor returns a gRPC unary interceptor that extracts and validates
// a Bearer JWT from incoming metadata and injects the Principal into the context.
// Methods listed in allowUnauthenticated will bypass authentication (e.g., health checks).
// Tokens whose jti is in revocations are rejected; revocations may be nil.
func NewUnaryAuthInterceptor(secret string, revocations RevocationStore, allowUnauthenticated ...string) grpc.UnaryServerInterceptor {
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, m := range allowUnauthenticated {
		allow[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		p, err := ParseFromMD(ctx, secret)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "auth error: %v", err)
		}
		if revocations != nil && p.TokenID != "" {
			revoked, err := revocations.IsRevoked(ctx, p.TokenID)
			if err != nil {
				return nil, status.Errorf(codes.Internal, "revocation check: %v", err)
			}
			if revoked {
				return nil, status.Error(codes.Unauthenticated, "token revoked")
			}
		}
		return handler(WithPrincipal(ctx, p), req)
	}
}

// NewUnaryKindInterceptor rejects calls whose principal is not of kind, except allowlisted methods.
func NewUnaryKindInterceptor(kind string, allow ...string) grpc.UnaryServerInterceptor {
	skip := make(map[string]struct{}, len(allow))
	for _, m := range allow {
		skip[m] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := skip[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		if _, err := RequireKind(ctx, kind); err != nil {
			return nil, ToStatus(err)
		}
		return handler(ctx, req)
	}
}

// ToStatus converts an apperr error into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch apperr.KindOf(err) {
	case apperr.KindInvalid:
		code = codes.InvalidArgument
	case apperr.KindUnauthorized:
		code = codes.Unauthenticated
	case apperr.KindForbidden:
		code = codes.PermissionDenied
	case apperr.KindNotFound:
		code = codes.NotFound
	case apperr.KindConflict:
		code = codes.AlreadyExists
	case apperr.KindTooManyRequests:
		code = codes.ResourceExhausted
	}
	return status.Error(code, apperr.PublicMessage(err))
}
