package service

import (
	"context"

	"github.com/godilite/sales-trends/internal/aggregate"
	"github.com/godilite/sales-trends/internal/repository/models"
	"github.com/godilite/sales-trends/internal/timeseries"
	"github.com/godilite/sales-trends/internal/trend"
)

// RunRepository defines the run history operations used by the service.
type RunRepository interface {
	SaveRun(ctx context.Context, run models.AnalysisRun, trends []models.SegmentTrend) error
	ListRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error)
	SegmentHistory(ctx context.Context, segment string, limit int) ([]models.SegmentTrend, error)
}

// Aggregator builds the aggregate table of a source directory.
type Aggregator interface {
	Profile() aggregate.Profile
	Aggregate(ctx context.Context, dir string, level timeseries.Frequency) (*aggregate.Result, error)
}

// Analyzer runs the per-segment trend analysis.
type Analyzer interface {
	MinPeriods() int
	AnalyzeSegments(ctx context.Context, series map[string]timeseries.Series) map[string]trend.SegmentAnalysis
}
