package grpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	pb "github.com/godilite/sales-trends/api/v1"
	"github.com/godilite/sales-trends/internal/service"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 60 * time.Second
)

type CacheKeyType string

const (
	cacheKeyAnalyzeTrends CacheKeyType = "grpc:analyze_trends"
)

type GRPCHandlers struct {
	pb.UnimplementedTrendAnalysisServer
	analysis AnalysisService
	cache    Cacher
	logger   *zap.Logger
	sfGroup  singleflight.Group
	cacheTTL time.Duration
}

// NewGRPCHandlers initializes the gRPC handlers.
func NewGRPCHandlers(analysis AnalysisService, cache Cacher, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if analysis == nil {
		panic("nil AnalysisService provided to NewGRPCHandlers")
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandlers{
		analysis: analysis,
		cache:    cache,
		logger:   logger.Named("grpc-handler"),
		cacheTTL: ttl,
	}
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", name)
	}
	return s.StringValue, nil
}

func intField(req *structpb.Struct, name string) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, nil
	}
	if _, isNull := v.GetKind().(*structpb.Value_NullValue); isNull {
		return 0, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber || n.NumberValue < 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt32 {
		return 0, status.Errorf(codes.InvalidArgument, "%s must be a non-negative integer", name)
	}
	return int(n.NumberValue), nil
}

func (s *GRPCHandlers) parseAnalysisRequest(req *structpb.Struct) (service.AnalysisRequest, error) {
	var out service.AnalysisRequest
	var err error
	if out.Level, err = stringField(req, "aggregation_level"); err != nil {
		return out, err
	}
	if out.SegmentColumn, err = stringField(req, "segment_column"); err != nil {
		return out, err
	}
	if out.ValueColumn, err = stringField(req, "value_column"); err != nil {
		return out, err
	}

	out, err = s.analysis.Normalize(out)
	if err != nil {
		return out, status.Error(codes.InvalidArgument, err.Error())
	}
	return out, nil
}

func normalizeKey(prefix CacheKeyType, profile string, req service.AnalysisRequest) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", prefix, profile, req.Level, req.SegmentColumn, req.ValueColumn)
}

// toStruct converts a JSON-tagged value into a Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrNoData):
		s.logger.Info("no data found", zap.String("op", op), zap.Error(err))
		return status.Error(codes.NotFound, "no data found")
	case errors.Is(err, service.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) AnalyzeTrends(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	areq, err := s.parseAnalysisRequest(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	cacheKey := normalizeKey(cacheKeyAnalyzeTrends, s.analysis.Profile(), areq)

	report, err := FindAndCache(ctx, s.cache, &s.sfGroup, cacheKey, s.cacheTTL, s.logger, func(fetchCtx context.Context) (*service.AnalysisReport, error) {
		return s.analysis.RunAnalysis(fetchCtx, areq)
	})
	if err != nil {
		return nil, s.handleError(ctx, "AnalyzeTrends", err)
	}

	out, err := toStruct(report)
	if err != nil {
		return nil, s.handleError(ctx, "AnalyzeTrends", fmt.Errorf("encode report: %w", err))
	}
	return out, nil
}

func (s *GRPCHandlers) ListRuns(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	limit, err := intField(req, "limit")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	runs, err := s.analysis.ListRuns(ctx, limit)
	if err != nil {
		return nil, s.handleError(ctx, "ListRuns", err)
	}

	out, err := toStruct(map[string]any{"runs": runs})
	if err != nil {
		return nil, s.handleError(ctx, "ListRuns", fmt.Errorf("encode runs: %w", err))
	}
	return out, nil
}

func (s *GRPCHandlers) GetSegmentHistory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	segment, err := stringField(req, "segment")
	if err != nil {
		return nil, err
	}
	if segment == "" {
		return nil, status.Error(codes.InvalidArgument, "segment is required")
	}
	limit, err := intField(req, "limit")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	history, err := s.analysis.SegmentHistory(ctx, segment, limit)
	if err != nil {
		return nil, s.handleError(ctx, "GetSegmentHistory", err)
	}

	out, err := toStruct(map[string]any{"segment": segment, "history": history})
	if err != nil {
		return nil, s.handleError(ctx, "GetSegmentHistory", fmt.Errorf("encode history: %w", err))
	}
	return out, nil
}
