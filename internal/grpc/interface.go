package grpc

import (
	"context"
	"time"

	"github.com/godilite/sales-trends/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type AnalysisService interface {
	Profile() string
	Normalize(req service.AnalysisRequest) (service.AnalysisRequest, error)
	RunAnalysis(ctx context.Context, req service.AnalysisRequest) (*service.AnalysisReport, error)
	ListRuns(ctx context.Context, limit int) ([]service.RunSummary, error)
	SegmentHistory(ctx context.Context, segment string, limit int) ([]service.SegmentHistoryEntry, error)
}
