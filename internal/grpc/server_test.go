package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"blogPlatform/internal/auth"
	"blogPlatform/internal/config"
	"blogPlatform/internal/testutil"
)

const testSecret = "grpc-test-secret"

func startBuf(t *testing.T, db Pinger, rev auth.RevocationStore) (*Server, *grpc.ClientConn) {
	t.Helper()
	cfg := &config.Config{
		Auth:     config.AuthConfig{JWTSecret: testSecret},
		Services: []string{config.ServiceUsers, config.ServiceBlog},
	}
	s := New(cfg, db, rev, testutil.Logger(t))
	lis := bufconn.Listen(1 << 20)
	go func() { _ = s.GRPC.Serve(lis) }()
	t.Cleanup(s.GRPC.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return s, conn
}

func TestHealthFollowsDatabaseProbe(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "grpc_health")
	s, conn := startBuf(t, d, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.Equal(t, healthpb.HealthCheckResponse_SERVING, s.Probe(ctx))
	client := healthpb.NewHealthClient(conn)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: config.ServiceBlog})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	require.NoError(t, d.Close())
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, s.Probe(ctx))
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: config.ServiceAdmin})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func listServices(ctx context.Context, conn *grpc.ClientConn) (*reflectionpb.ServerReflectionResponse, error) {
	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
	if err != nil {
		return nil, err
	}
	if err := stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{ListServices: ""},
	}); err != nil {
		return nil, err
	}
	return stream.Recv()
}

func TestReflectionRequiresAdmin(t *testing.T) {
	rev := auth.NewMemoryRevocationStore()
	_, conn := startBuf(t, nil, rev)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := listServices(ctx, conn)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	userTok := testutil.GenerateJWTHS256(t, testSecret, 1, "alice", auth.KindUser, "user")
	_, err = listServices(metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+userTok), conn)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	adminTok := testutil.GenerateJWTHS256(t, testSecret, 1, "root", auth.KindAdmin, "superadmin")
	resp, err := listServices(metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+adminTok), conn)
	require.NoError(t, err)
	var names []string
	for _, svc := range resp.GetListServicesResponse().GetService() {
		names = append(names, svc.GetName())
	}
	assert.Contains(t, names, "grpc.health.v1.Health")
}
