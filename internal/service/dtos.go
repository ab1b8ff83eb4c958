package service

import (
	"time"

	"github.com/godilite/sales-trends/internal/aggregate"
	"github.com/godilite/sales-trends/internal/trend"
)

// AnalysisRequest selects what to analyze. Empty fields take the service defaults.
type AnalysisRequest struct {
	Level         string `json:"aggregation_level,omitempty"`
	SegmentColumn string `json:"segment_column,omitempty"`
	ValueColumn   string `json:"value_column,omitempty"`
}

type IngestSummary struct {
	Files         []aggregate.FileStats   `json:"files"`
	Skipped       []aggregate.SkippedFile `json:"skipped,omitempty"`
	RowsRead      int                     `json:"rows_read"`
	RowsDropped   int                     `json:"rows_dropped"`
	ValuesCoerced int                     `json:"values_coerced"`
	Groups        int                     `json:"groups"`
	Periods       int                     `json:"periods"`
}

type AnalysisReport struct {
	RunID         string                           `json:"run_id"`
	GeneratedAt   time.Time                        `json:"generated_at"`
	Profile       string                           `json:"profile"`
	Level         string                           `json:"aggregation_level"`
	SegmentColumn string                           `json:"segment_column"`
	ValueColumn   string                           `json:"value_column"`
	Segments      map[string]trend.SegmentAnalysis `json:"segments"`
	Ingest        IngestSummary                    `json:"ingest"`
}

// Markdown renders the report's segments as a markdown summary.
func (r *AnalysisReport) Markdown() string {
	return trend.FormatMarkdown(r.Segments)
}

type RunSummary struct {
	RunID         string    `json:"run_id"`
	Profile       string    `json:"profile"`
	Level         string    `json:"aggregation_level"`
	SegmentColumn string    `json:"segment_column"`
	ValueColumn   string    `json:"value_column"`
	Segments      int       `json:"segments"`
	Failed        int       `json:"failed"`
	RowsRead      int       `json:"rows_read"`
	RowsDropped   int       `json:"rows_dropped"`
	FilesSkipped  int       `json:"files_skipped"`
	CreatedAt     time.Time `json:"created_at"`
}

type SegmentHistoryEntry struct {
	RunID          string    `json:"run_id"`
	Direction      string    `json:"direction"`
	Confidence     float64   `json:"confidence"`
	RateOfChange   float64   `json:"rate_of_change"`
	DataPoints     int       `json:"data_points"`
	AnalysisPeriod string    `json:"analysis_period"`
	Decomposition  string    `json:"decomposition"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
