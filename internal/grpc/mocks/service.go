package mocks

import (
	"context"
	"errors"

	"github.com/godilite/sales-trends/internal/service"
)

// MockAnalysisService is a mock implementation of the AnalysisService interface
// for testing the handler layer. It uses function-based mocking for flexibility.
type MockAnalysisService struct {
	ProfileName        string
	NormalizeFunc      func(req service.AnalysisRequest) (service.AnalysisRequest, error)
	RunAnalysisFunc    func(ctx context.Context, req service.AnalysisRequest) (*service.AnalysisReport, error)
	ListRunsFunc       func(ctx context.Context, limit int) ([]service.RunSummary, error)
	SegmentHistoryFunc func(ctx context.Context, segment string, limit int) ([]service.SegmentHistoryEntry, error)
}

// Profile implements the AnalysisService interface
func (m *MockAnalysisService) Profile() string {
	if m.ProfileName == "" {
		return "sales_extracts"
	}
	return m.ProfileName
}

// Normalize implements the AnalysisService interface. Without a NormalizeFunc
// it fills the stock defaults.
func (m *MockAnalysisService) Normalize(req service.AnalysisRequest) (service.AnalysisRequest, error) {
	if m.NormalizeFunc != nil {
		return m.NormalizeFunc(req)
	}
	if req.Level == "" {
		req.Level = "quarterly"
	}
	if req.SegmentColumn == "" {
		req.SegmentColumn = "segment"
	}
	if req.ValueColumn == "" {
		req.ValueColumn = "total_revenue"
	}
	return req, nil
}

// RunAnalysis implements the AnalysisService interface
func (m *MockAnalysisService) RunAnalysis(ctx context.Context, req service.AnalysisRequest) (*service.AnalysisReport, error) {
	if m.RunAnalysisFunc != nil {
		return m.RunAnalysisFunc(ctx, req)
	}
	return nil, errors.New("RunAnalysisFunc not implemented")
}

// ListRuns implements the AnalysisService interface
func (m *MockAnalysisService) ListRuns(ctx context.Context, limit int) ([]service.RunSummary, error) {
	if m.ListRunsFunc != nil {
		return m.ListRunsFunc(ctx, limit)
	}
	return nil, errors.New("ListRunsFunc not implemented")
}

// SegmentHistory implements the AnalysisService interface
func (m *MockAnalysisService) SegmentHistory(ctx context.Context, segment string, limit int) ([]service.SegmentHistoryEntry, error) {
	if m.SegmentHistoryFunc != nil {
		return m.SegmentHistoryFunc(ctx, segment, limit)
	}
	return nil, errors.New("SegmentHistoryFunc not implemented")
}
