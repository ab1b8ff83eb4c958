package mocks

import (
	"context"
	"errors"

	"github.com/godilite/sales-trends/internal/repository/models"
)

// MockRunRepository is a mock implementation of the RunRepository interface
// for testing the service layer.
type MockRunRepository struct {
	SaveRunFunc        func(ctx context.Context, run models.AnalysisRun, trends []models.SegmentTrend) error
	ListRunsFunc       func(ctx context.Context, limit int) ([]models.AnalysisRun, error)
	SegmentHistoryFunc func(ctx context.Context, segment string, limit int) ([]models.SegmentTrend, error)
}

// SaveRun implements the RunRepository interface
func (m *MockRunRepository) SaveRun(ctx context.Context, run models.AnalysisRun, trends []models.SegmentTrend) error {
	if m.SaveRunFunc != nil {
		return m.SaveRunFunc(ctx, run, trends)
	}
	return nil
}

// ListRuns implements the RunRepository interface
func (m *MockRunRepository) ListRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	if m.ListRunsFunc != nil {
		return m.ListRunsFunc(ctx, limit)
	}
	return nil, errors.New("ListRunsFunc not implemented")
}

// SegmentHistory implements the RunRepository interface
func (m *MockRunRepository) SegmentHistory(ctx context.Context, segment string, limit int) ([]models.SegmentTrend, error) {
	if m.SegmentHistoryFunc != nil {
		return m.SegmentHistoryFunc(ctx, segment, limit)
	}
	return nil, errors.New("SegmentHistoryFunc not implemented")
}
