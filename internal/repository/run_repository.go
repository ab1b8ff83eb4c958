package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/godilite/sales-trends/internal/repository/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		aggregation_level TEXT NOT NULL,
		segment_column TEXT NOT NULL,
		value_column TEXT NOT NULL,
		segments INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		rows_read INTEGER NOT NULL,
		rows_dropped INTEGER NOT NULL,
		files_skipped INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS segment_trends (
		run_id TEXT NOT NULL,
		segment TEXT NOT NULL,
		direction TEXT NOT NULL,
		confidence REAL NOT NULL,
		rate_of_change REAL NOT NULL,
		data_points INTEGER NOT NULL,
		analysis_period TEXT NOT NULL,
		decomposition TEXT NOT NULL,
		error TEXT NOT NULL,
		PRIMARY KEY (run_id, segment),
		FOREIGN KEY (run_id) REFERENCES analysis_runs(id)
	);
	CREATE INDEX IF NOT EXISTS idx_segment_trends_segment ON segment_trends(segment);
`

// RunRepository stores analysis run history.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Migrate creates the run history tables when they do not exist.
func (r *RunRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate run history: %w", err)
	}
	return nil
}

// SaveRun stores a run and its segment outcomes in one transaction.
func (r *RunRepository) SaveRun(ctx context.Context, run models.AnalysisRun, trends []models.SegmentTrend) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin SaveRun: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertRun = `
		INSERT INTO analysis_runs (
			id, profile, aggregation_level, segment_column, value_column,
			segments, failed, rows_read, rows_dropped, files_skipped, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err = tx.ExecContext(ctx, insertRun,
		run.ID, run.Profile, run.Level, run.SegmentColumn, run.ValueColumn,
		run.Segments, run.FailedCount, run.RowsRead, run.RowsDropped, run.FilesSkipped, run.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert analysis run: %w", err)
	}

	const insertTrend = `
		INSERT INTO segment_trends (
			run_id, segment, direction, confidence, rate_of_change,
			data_points, analysis_period, decomposition, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	stmt, err := tx.PrepareContext(ctx, insertTrend)
	if err != nil {
		return fmt.Errorf("prepare segment trend insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range trends {
		if _, err = stmt.ExecContext(ctx,
			run.ID, t.Segment, t.Direction, t.Confidence, t.RateOfChange,
			t.DataPoints, t.AnalysisPeriod, t.Decomposition, t.Error,
		); err != nil {
			return fmt.Errorf("insert segment trend %q: %w", t.Segment, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit SaveRun: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (r *RunRepository) ListRuns(ctx context.Context, limit int) ([]models.AnalysisRun, error) {
	const query = `
		SELECT id, profile, aggregation_level, segment_column, value_column,
			segments, failed, rows_read, rows_dropped, files_skipped, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query ListRuns: %w", err)
	}
	defer rows.Close()

	var results []models.AnalysisRun
	for rows.Next() {
		var run models.AnalysisRun
		if err := rows.Scan(&run.ID, &run.Profile, &run.Level, &run.SegmentColumn, &run.ValueColumn,
			&run.Segments, &run.FailedCount, &run.RowsRead, &run.RowsDropped, &run.FilesSkipped, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ListRuns row: %w", err)
		}
		results = append(results, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ListRuns: %w", err)
	}
	return results, nil
}

// SegmentHistory returns the stored outcomes of one segment, newest first.
func (r *RunRepository) SegmentHistory(ctx context.Context, segment string, limit int) ([]models.SegmentTrend, error) {
	const query = `
		SELECT st.run_id, st.segment, st.direction, st.confidence, st.rate_of_change,
			st.data_points, st.analysis_period, st.decomposition, st.error, ar.created_at
		FROM segment_trends AS st
		JOIN analysis_runs AS ar ON ar.id = st.run_id
		WHERE st.segment = ?
		ORDER BY ar.created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, segment, limit)
	if err != nil {
		return nil, fmt.Errorf("query SegmentHistory: %w", err)
	}
	defer rows.Close()

	var results []models.SegmentTrend
	for rows.Next() {
		var t models.SegmentTrend
		if err := rows.Scan(&t.RunID, &t.Segment, &t.Direction, &t.Confidence, &t.RateOfChange,
			&t.DataPoints, &t.AnalysisPeriod, &t.Decomposition, &t.Error, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan SegmentHistory row: %w", err)
		}
		results = append(results, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate SegmentHistory: %w", err)
	}
	return results, nil
}
