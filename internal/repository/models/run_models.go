package models

import "time"

// AnalysisRun summarises one trend analysis invocation.
type AnalysisRun struct {
	ID            string
	Profile       string
	Level         string
	SegmentColumn string
	ValueColumn   string
	Segments      int
	FailedCount   int
	RowsRead      int
	RowsDropped   int
	FilesSkipped  int
	CreatedAt     time.Time
}

// SegmentTrend is the stored outcome of one segment within a run.
type SegmentTrend struct {
	RunID          string
	Segment        string
	Direction      string
	Confidence     float64
	RateOfChange   float64
	DataPoints     int
	AnalysisPeriod string
	Decomposition  string
	Error          string
	CreatedAt      time.Time
}
