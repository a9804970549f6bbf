package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/gestorventas/deposito/pkg/errorbank"
)

func TestHealthReportsLedgerStatus(t *testing.T) {
	h := NewHealth()
	server := NewServer(zap.NewNop(), h)

	ln := bufconn.Listen(1 << 20)
	go func() { _ = server.Serve(ln) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return ln.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := healthpb.NewHealthClient(conn)
	ctx := context.Background()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: LedgerService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	h.SetServingStatus(LedgerService, healthpb.HealthCheckResponse_SERVING)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: LedgerService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown"})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestToStatusMapsAppErrors(t *testing.T) {
	assert.NoError(t, toStatus(nil))

	err := toStatus(errorbank.InvalidState("order is finalized"))
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
	assert.Equal(t, "order is finalized", st.Message())

	passthrough := status.Error(codes.Unavailable, "down")
	assert.Equal(t, passthrough, toStatus(passthrough))
}
