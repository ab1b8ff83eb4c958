package mocks

import (
	"context"
	"errors"

	"github.com/godilite/sales-trends/internal/aggregate"
	"github.com/godilite/sales-trends/internal/timeseries"
	"github.com/godilite/sales-trends/internal/trend"
)

// MockAggregator is a mock implementation of the Aggregator interface.
type MockAggregator struct {
	ProfileValue  aggregate.Profile
	AggregateFunc func(ctx context.Context, dir string, level timeseries.Frequency) (*aggregate.Result, error)
}

// Profile implements the Aggregator interface
func (m *MockAggregator) Profile() aggregate.Profile {
	return m.ProfileValue
}

// Aggregate implements the Aggregator interface
func (m *MockAggregator) Aggregate(ctx context.Context, dir string, level timeseries.Frequency) (*aggregate.Result, error) {
	if m.AggregateFunc != nil {
		return m.AggregateFunc(ctx, dir, level)
	}
	return nil, errors.New("AggregateFunc not implemented")
}

// MockAnalyzer is a mock implementation of the Analyzer interface.
type MockAnalyzer struct {
	MinPeriodsValue     int
	AnalyzeSegmentsFunc func(ctx context.Context, series map[string]timeseries.Series) map[string]trend.SegmentAnalysis
}

// MinPeriods implements the Analyzer interface
func (m *MockAnalyzer) MinPeriods() int {
	if m.MinPeriodsValue == 0 {
		return 4
	}
	return m.MinPeriodsValue
}

// AnalyzeSegments implements the Analyzer interface
func (m *MockAnalyzer) AnalyzeSegments(ctx context.Context, series map[string]timeseries.Series) map[string]trend.SegmentAnalysis {
	if m.AnalyzeSegmentsFunc != nil {
		return m.AnalyzeSegmentsFunc(ctx, series)
	}
	return map[string]trend.SegmentAnalysis{}
}
