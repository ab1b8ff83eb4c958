package server

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func TestLoggingInterceptor(t *testing.T) {
	interceptor := LoggingInterceptor(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/trends.v1.TrendAnalysis/AnalyzeTrends"}

	t.Run("successful request", func(t *testing.T) {
		resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
			return "success", nil
		})
		if err != nil {
			t.Errorf("Expected no error, got %v", err)
		}
		if resp != "success" {
			t.Errorf("Expected 'success', got %v", resp)
		}
	})

	t.Run("error request", func(t *testing.T) {
		_, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
			return nil, status.Error(codes.InvalidArgument, "unknown aggregation level")
		})
		if status.Code(err) != codes.InvalidArgument {
			t.Errorf("Expected InvalidArgument, got %v", status.Code(err))
		}
	})
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor(zaptest.NewLogger(t))
	info := &grpc.UnaryServerInfo{FullMethod: "/trends.v1.TrendAnalysis/ListRuns"}

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
		panic("nil map write")
	})
	if resp != nil {
		t.Errorf("Expected nil response, got %v", resp)
	}
	if status.Code(err) != codes.Internal {
		t.Errorf("Expected Internal, got %v", status.Code(err))
	}
}

func TestNew_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		if _, err := New(WithPort(port)); err == nil {
			t.Errorf("Expected error for port %d", port)
		}
	}
}

func TestServerBuilderWithLogging(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var intercepted atomic.Int32
	server, err := New(
		WithListener(lis),
		WithLogger(zaptest.NewLogger(t)),
		WithLogging(true),
		WithUnaryInterceptors(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			intercepted.Add(1)
			return handler(ctx, req)
		}),
	)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			t.Logf("Server shutdown error: %v", err)
		}
	}()

	if server.Addr().String() != lis.Addr().String() {
		t.Errorf("Expected address %s, got %s", lis.Addr(), server.Addr())
	}

	server.Start()

	conn, err := grpc.NewClient(server.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("Failed to dial server: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthClient := healthpb.NewHealthClient(conn)
	resp, err := healthClient.Check(ctx, &healthpb.HealthCheckRequest{}, grpc.WaitForReady(true))
	if err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("Expected SERVING status, got %v", resp.Status)
	}
	if n := intercepted.Load(); n != 1 {
		t.Errorf("Expected custom interceptor to run once, ran %d times", n)
	}

	server.SetServiceHealth("trends.v1.TrendAnalysis", healthpb.HealthCheckResponse_NOT_SERVING)
	resp, err = healthClient.Check(ctx, &healthpb.HealthCheckRequest{Service: "trends.v1.TrendAnalysis"})
	if err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING status, got %v", resp.Status)
	}
}

func TestMetricsInterceptor(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	interceptor, err := MetricsInterceptor(provider.Meter("test"))
	if err != nil {
		t.Fatalf("MetricsInterceptor: %v", err)
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/trends.v1.TrendAnalysis/GetSegmentHistory"}

	for _, code := range []codes.Code{codes.OK, codes.NotFound, codes.NotFound} {
		_, _ = interceptor(context.Background(), "req", info, func(ctx context.Context, req any) (any, error) {
			if code == codes.OK {
				return "ok", nil
			}
			return nil, status.Error(code, "no data found")
		})
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "grpc_server_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				code, _ := dp.Attributes.Value("code")
				counts[code.AsString()] += dp.Value
			}
		}
	}

	if counts["OK"] != 1 {
		t.Errorf("Expected 1 OK request, got %d", counts["OK"])
	}
	if counts["NotFound"] != 2 {
		t.Errorf("Expected 2 NotFound requests, got %d", counts["NotFound"])
	}
}

func TestShutdown_MarksNotServing(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	server, err := New(WithListener(lis), WithMaxMessageSize(-1))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	server.RegisterServiceWithHealth("trends.v1.TrendAnalysis", func(s *grpc.Server) {})
	server.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown: %v", err)
	}

	resp, err := server.healthServer.Check(context.Background(), &healthpb.HealthCheckRequest{Service: "trends.v1.TrendAnalysis"})
	if err != nil {
		t.Fatalf("Health check failed: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("Expected NOT_SERVING after shutdown, got %v", resp.Status)
	}
}
