package health_test

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oggyb/galatea/internal/service/health"
	"github.com/oggyb/galatea/internal/testutil"
)

// dial serves the health registrar over an in-memory listener.
func dial(t *testing.T, svc *health.Service) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	health.NewRegistrar(svc).Register(s)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return healthpb.NewHealthClient(conn)
}

func TestCheckerReport(t *testing.T) {
	appCtx, mr := testutil.NewAppContext(t)
	checker := health.NewChecker(appCtx)

	report, ok := checker.Check(context.Background())
	assert.True(t, ok)
	assert.Equal(t, health.Report{"database": "ok", "redis": "ok"}, report)

	mr.Close()
	report, ok = checker.Check(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "ok", report["database"])
	assert.NotEqual(t, "ok", report["redis"])
}

func TestGRPCHealthFollowsDependencies(t *testing.T) {
	ctx := context.Background()
	appCtx, mr := testutil.NewAppContext(t)
	client := dial(t, health.NewService(health.NewChecker(appCtx)))

	for _, name := range []string{"", health.ServiceName} {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: name})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus(), name)
	}

	mr.Close()
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
