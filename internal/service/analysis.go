package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/godilite/sales-trends/internal/aggregate"
	"github.com/godilite/sales-trends/internal/repository/models"
	"github.com/godilite/sales-trends/internal/timeseries"
	"github.com/godilite/sales-trends/internal/trend"
)

const (
	dbTimeout = 1 * time.Second

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

var (
	ErrNoData         = errors.New("no data available")
	ErrInvalidRequest = errors.New("invalid request")
	ErrStorageFailure = errors.New("storage failure")
)

// Defaults fill the empty fields of an AnalysisRequest.
type Defaults struct {
	DataDir       string
	Level         string
	SegmentColumn string
	ValueColumn   string
}

// AnalysisService runs aggregation, extraction, and trend analysis for a
// request and records each run.
type AnalysisService struct {
	aggregator Aggregator
	analyzer   Analyzer
	storage    RunRepository
	defaults   Defaults
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewAnalysisService creates a new AnalysisService instance.
func NewAnalysisService(aggregator Aggregator, analyzer Analyzer, storage RunRepository, defaults Defaults, logger *zap.Logger) *AnalysisService {
	if aggregator == nil {
		panic("aggregator must not be nil")
	}
	if analyzer == nil {
		panic("analyzer must not be nil")
	}
	if storage == nil {
		panic("storage must not be nil")
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	if defaults.Level == "" {
		defaults.Level = string(timeseries.Quarterly)
	}
	if defaults.SegmentColumn == "" {
		defaults.SegmentColumn = aggregate.ColumnSegment
	}
	if defaults.ValueColumn == "" {
		defaults.ValueColumn = aggregate.ColumnTotalRevenue
	}
	return &AnalysisService{
		aggregator: aggregator,
		analyzer:   analyzer,
		storage:    storage,
		defaults:   defaults,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      func() string { return uuid.NewString() },
	}
}

// Profile returns the name of the source profile being analyzed.
func (s *AnalysisService) Profile() string {
	return s.aggregator.Profile().Name
}

// Normalize fills defaults into req and validates the aggregation level.
func (s *AnalysisService) Normalize(req AnalysisRequest) (AnalysisRequest, error) {
	if req.Level == "" {
		req.Level = s.defaults.Level
	}
	if req.SegmentColumn == "" {
		req.SegmentColumn = s.defaults.SegmentColumn
	}
	if req.ValueColumn == "" {
		req.ValueColumn = s.defaults.ValueColumn
	}
	if _, err := timeseries.ParseFrequency(req.Level); err != nil {
		return req, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return req, nil
}

// RunAnalysis analyzes every segment of the source directory.
func (s *AnalysisService) RunAnalysis(ctx context.Context, req AnalysisRequest) (*AnalysisReport, error) {
	req, err := s.Normalize(req)
	if err != nil {
		return nil, err
	}
	level := timeseries.Frequency(req.Level)

	table, err := s.aggregator.Aggregate(ctx, s.defaults.DataDir, level)
	if err != nil {
		if errors.Is(err, aggregate.ErrNoSourceFiles) || errors.Is(err, aggregate.ErrNoData) {
			return nil, fmt.Errorf("%w: %v", ErrNoData, err)
		}
		return nil, fmt.Errorf("aggregate %s: %w", s.defaults.DataDir, err)
	}

	series, err := table.ExtractSeries(req.SegmentColumn, req.ValueColumn, s.analyzer.MinPeriods())
	if err != nil {
		if errors.Is(err, aggregate.ErrUnknownColumn) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, fmt.Errorf("extract series: %w", err)
	}

	segments := s.analyzer.AnalyzeSegments(ctx, series)

	report := &AnalysisReport{
		RunID:         s.newID(),
		GeneratedAt:   s.now(),
		Profile:       table.Profile,
		Level:         req.Level,
		SegmentColumn: req.SegmentColumn,
		ValueColumn:   req.ValueColumn,
		Segments:      segments,
		Ingest:        summarizeIngest(table),
	}

	failed := 0
	for _, seg := range segments {
		if seg.Failed() {
			failed++
		}
	}
	s.logger.Info("trend analysis completed",
		zap.String("run_id", report.RunID),
		zap.String("level", report.Level),
		zap.String("segment_column", report.SegmentColumn),
		zap.String("value_column", report.ValueColumn),
		zap.Int("segments", len(segments)),
		zap.Int("failed", failed),
		zap.Int("rows_read", report.Ingest.RowsRead),
		zap.Int("rows_dropped", report.Ingest.RowsDropped))

	s.saveRun(ctx, report, failed)
	return report, nil
}

// saveRun records the run. History is auxiliary, so a storage failure is
// logged and the report is still returned.
func (s *AnalysisService) saveRun(ctx context.Context, report *AnalysisReport, failed int) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	run := models.AnalysisRun{
		ID:            report.RunID,
		Profile:       report.Profile,
		Level:         report.Level,
		SegmentColumn: report.SegmentColumn,
		ValueColumn:   report.ValueColumn,
		Segments:      len(report.Segments),
		FailedCount:   failed,
		RowsRead:      report.Ingest.RowsRead,
		RowsDropped:   report.Ingest.RowsDropped,
		FilesSkipped:  len(report.Ingest.Skipped),
		CreatedAt:     report.GeneratedAt,
	}

	names := make([]string, 0, len(report.Segments))
	for name := range report.Segments {
		names = append(names, name)
	}
	sort.Strings(names)

	trends := make([]models.SegmentTrend, 0, len(names))
	for _, name := range names {
		trends = append(trends, toSegmentTrend(report.RunID, report.Segments[name]))
	}

	if err := s.storage.SaveRun(dbCtx, run, trends); err != nil {
		s.logger.Error("failed to save analysis run",
			zap.String("run_id", report.RunID),
			zap.Error(err))
	}
}

func toSegmentTrend(runID string, seg trend.SegmentAnalysis) models.SegmentTrend {
	t := models.SegmentTrend{
		RunID:          runID,
		Segment:        seg.SegmentName,
		Direction:      string(seg.Trend.Direction),
		Confidence:     seg.Trend.Confidence,
		RateOfChange:   seg.Trend.RateOfChange,
		DataPoints:     seg.Trend.DataPoints,
		AnalysisPeriod: seg.Trend.AnalysisPeriod,
		Error:          seg.Error,
	}
	if seg.Decomposition != nil {
		t.Decomposition = seg.Decomposition.Method
	}
	return t
}

func summarizeIngest(table *aggregate.Result) IngestSummary {
	summary := IngestSummary{
		Files:   table.Files,
		Skipped: table.Skipped,
		Groups:  len(table.Rows),
		Periods: table.Periods(),
	}
	for _, f := range table.Files {
		summary.RowsRead += f.RowsRead
		summary.RowsDropped += f.RowsDropped
		summary.ValuesCoerced += f.ValuesCoerced
	}
	return summary
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return min(limit, maxHistoryLimit)
}

// ListRuns returns the most recent runs, newest first.
func (s *AnalysisService) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	runs, err := s.storage.ListRuns(dbCtx, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	out := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, RunSummary{
			RunID:         r.ID,
			Profile:       r.Profile,
			Level:         r.Level,
			SegmentColumn: r.SegmentColumn,
			ValueColumn:   r.ValueColumn,
			Segments:      r.Segments,
			Failed:        r.FailedCount,
			RowsRead:      r.RowsRead,
			RowsDropped:   r.RowsDropped,
			FilesSkipped:  r.FilesSkipped,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}

// SegmentHistory returns the stored outcomes of one segment, newest first.
func (s *AnalysisService) SegmentHistory(ctx context.Context, segment string, limit int) ([]SegmentHistoryEntry, error) {
	if segment == "" {
		return nil, fmt.Errorf("%w: segment is required", ErrInvalidRequest)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.storage.SegmentHistory(dbCtx, segment, clampLimit(limit))
	if err != nil {
		s.logger.Error("failed to fetch segment history", zap.String("segment", segment), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	out := make([]SegmentHistoryEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, SegmentHistoryEntry{
			RunID:          r.RunID,
			Direction:      r.Direction,
			Confidence:     r.Confidence,
			RateOfChange:   r.RateOfChange,
			DataPoints:     r.DataPoints,
			AnalysisPeriod: r.AnalysisPeriod,
			Decomposition:  r.Decomposition,
			Error:          r.Error,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}
