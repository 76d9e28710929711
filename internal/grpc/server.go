// Package grpcserver runs the operations gRPC listener: standard health checks
// backed by a database probe, plus server reflection for admins.
package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"blogPlatform/internal/auth"
	"blogPlatform/internal/config"
)

const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthWatchMethod = "/grpc.health.v1.Health/Watch"

	probeInterval = 15 * time.Second
	probeTimeout  = 2 * time.Second
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server is the configured gRPC server and the health registry it reports through.
type Server struct {
	GRPC   *grpc.Server
	Health *health.Server

	db       Pinger
	services []string
	log      *zap.Logger
}

// New builds the server. Every RPC except the health endpoints needs an admin token.
func New(cfg *config.Config, db Pinger, revocations auth.RevocationStore, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{db: db, services: cfg.Services, log: log, Health: health.NewServer()}
	s.GRPC = grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			s.recoverUnary,
			s.logUnary,
			auth.NewUnaryAuthInterceptor(cfg.Auth.JWTSecret, revocations, healthCheckMethod),
			auth.NewUnaryKindInterceptor(auth.KindAdmin, healthCheckMethod),
		),
		grpc.ChainStreamInterceptor(adminStream(cfg.Auth.JWTSecret, revocations, healthWatchMethod)),
	)
	healthpb.RegisterHealthServer(s.GRPC, s.Health)
	reflection.Register(s.GRPC)
	return s
}

// Probe pings the database once and publishes the result for the overall
// server and for each enabled service.
func (s *Server) Probe(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if s.db != nil {
		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		err := s.db.PingContext(pctx)
		cancel()
		if err != nil {
			s.log.Warn("grpc health probe failed", zap.Error(err))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.Health.SetServingStatus("", st)
	for _, name := range s.services {
		s.Health.SetServingStatus(name, st)
	}
	return st
}

// watch re-probes until ctx ends.
func (s *Server) watch(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Probe(ctx)
		}
	}
}

// StartGRPC starts the listener on cfg.GRPC.Address and returns a shutdown function.
func StartGRPC(cfg *config.Config, db Pinger, revocations auth.RevocationStore, log *zap.Logger) (func(context.Context) error, error) {
	if cfg == nil {
		panic("config is required")
	}
	addr := cfg.GRPC.Address
	if addr == "" {
		addr = ":50051"
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	s := New(cfg, db, revocations, log)
	probeCtx, stopProbe := context.WithCancel(context.Background())
	s.Probe(probeCtx)
	go s.watch(probeCtx, probeInterval)

	go func() {
		if err := s.GRPC.Serve(lis); err != nil {
			s.log.Error("grpc server stopped", zap.Error(err))
		}
	}()

	return func(ctx context.Context) error {
		stopProbe()
		s.Health.Shutdown()
		done := make(chan struct{})
		go func() { s.GRPC.GracefulStop(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			s.GRPC.Stop()
			return ctx.Err()
		}
	}, nil
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	fields := []zap.Field{zap.String("method", info.FullMethod), zap.Duration("duration", time.Since(start))}
	if err != nil {
		st, _ := status.FromError(err)
		s.log.Warn("grpc call failed", append(fields, zap.String("grpc_code", st.Code().String()), zap.Error(err))...)
		return resp, err
	}
	s.log.Debug("grpc call", fields...)
	return resp, nil
}

func (s *Server) recoverUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("grpc panic recovered", zap.String("method", info.FullMethod), zap.Any("panic", r))
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// adminStream is the streaming counterpart of the unary auth and kind interceptors.
func adminStream(secret string, revocations auth.RevocationStore, allow ...string) grpc.StreamServerInterceptor {
	skip := make(map[string]struct{}, len(allow))
	for _, m := range allow {
		skip[m] = struct{}{}
	}
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if _, ok := skip[info.FullMethod]; ok {
			return handler(srv, ss)
		}
		ctx := ss.Context()
		p, err := auth.ParseFromMD(ctx, secret)
		if err != nil {
			return status.Errorf(codes.Unauthenticated, "auth error: %v", err)
		}
		if revocations != nil && p.TokenID != "" {
			revoked, err := revocations.IsRevoked(ctx, p.TokenID)
			if err != nil {
				return status.Errorf(codes.Internal, "revocation check: %v", err)
			}
			if revoked {
				return status.Error(codes.Unauthenticated, "token revoked")
			}
		}
		if p.Kind != auth.KindAdmin {
			return status.Error(codes.PermissionDenied, "only admin can perform this action")
		}
		return handler(srv, ss)
	}
}
