package app

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	pb "github.com/godilite/sales-trends/api/v1"
	"github.com/godilite/sales-trends/internal/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	return lis.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		AppEnv:            "test",
		DataDir:           filepath.Join(dir, "sales"),
		SourceProfile:     "sales_extracts",
		AggregationLevel:  "quarterly",
		ChunkSize:         1000,
		MinPeriods:        4,
		SignificanceLevel: 0.05,
		SegmentColumn:     "segment",
		ValueColumn:       "total_revenue",
		DBDriver:          "sqlite3",
		DBPath:            filepath.Join(dir, "db", "trends.db"),
		DBMaxOpenConns:    2,
		DBMaxIdleConns:    1,
		DBConnMaxLifetime: time.Minute,
		CacheTTL:          time.Minute,
		GRPCPort:          freePort(t),
		HTTPPort:          freePort(t),
		ShutdownTimeout:   5 * time.Second,
	}
}

func TestNewApp_UnknownProfile(t *testing.T) {
	cfg := testConfig(t)
	cfg.SourceProfile = "spreadsheets"

	_, err := NewApp(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown source profile "spreadsheets"`)
}

func TestNewApp_UnreachableCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.RedisAddr = fmt.Sprintf("127.0.0.1:%d", freePort(t))

	_, err := NewApp(context.Background(), cfg, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache init failed")
}

func TestApp_RunServesAndShutsDown(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := NewApp(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- application.Run(ctx) }()

	healthURL := fmt.Sprintf("http://127.0.0.1:%d/healthz", cfg.HTTPPort)
	require.Eventually(t, func() bool {
		resp, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	conn, err := grpc.NewClient(fmt.Sprintf("127.0.0.1:%d", cfg.GRPCPort),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	rpcCtx, rpcCancel := context.WithTimeout(ctx, 5*time.Second)
	defer rpcCancel()
	resp, err := healthpb.NewHealthClient(conn).Check(rpcCtx, &healthpb.HealthCheckRequest{
		Service: pb.TrendAnalysis_ServiceDesc.ServiceName,
	})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	assert.FileExists(t, cfg.DBPath)
}
