package aggregate

import (
	"errors"

	"github.com/godilite/sales-trends/internal/timeseries"
)

var (
	// ErrNoSourceFiles means the source directory holds no candidate extract.
	ErrNoSourceFiles = errors.New("no source files found")
	// ErrNoData means every candidate file was skipped or produced zero rows.
	ErrNoData = errors.New("no data produced")
	// ErrMissingColumns means a file lacks the date, segment, or every measure column.
	ErrMissingColumns = errors.New("required columns missing")
	// ErrUnknownColumn means the extractor was asked for a column the aggregate table does not carry.
	ErrUnknownColumn = errors.New("unknown column")
)

// Value columns of the aggregate table.
const (
	ColumnTotalQuantity      = "total_quantity"
	ColumnTotalRevenue       = "total_revenue"
	ColumnTotalActualRevenue = "total_actual_revenue"
	ColumnUniqueProducts     = "unique_products"

	// ColumnSegment addresses the profile's segment label regardless of its source name.
	ColumnSegment = "segment"
)

// AggregateRow is one (period, segment, extra keys) group with its summed measures.
type AggregateRow struct {
	Period     timeseries.Period `json:"period"`
	Year       int               `json:"year"`
	Month      int               `json:"month,omitempty"`
	Quarter    int               `json:"quarter,omitempty"`
	Label      string            `json:"period_label"`
	Segment    string            `json:"segment"`
	Dimensions map[string]string `json:"dimensions,omitempty"`

	TotalQuantity      float64 `json:"total_quantity"`
	TotalRevenue       float64 `json:"total_revenue"`
	TotalActualRevenue float64 `json:"total_actual_revenue"`
	UniqueProducts     int     `json:"unique_products"`

	Provenance Provenance `json:"provenance"`
}

// Value returns the named measure.
func (r AggregateRow) Value(column string) (float64, bool) {
	switch column {
	case ColumnTotalQuantity:
		return r.TotalQuantity, true
	case ColumnTotalRevenue:
		return r.TotalRevenue, true
	case ColumnTotalActualRevenue:
		return r.TotalActualRevenue, true
	case ColumnUniqueProducts:
		return float64(r.UniqueProducts), true
	default:
		return 0, false
	}
}

// Provenance records which extract a row came from. Quarter and year come
// from the file name and are informational only.
type Provenance struct {
	SourceFile  string `json:"source_file"`
	FileQuarter *int   `json:"file_quarter,omitempty"`
	FileYear    *int   `json:"file_year,omitempty"`
}

// FileStats counts what happened to one extract.
type FileStats struct {
	File          string `json:"file"`
	Chunks        int    `json:"chunks"`
	RowsRead      int    `json:"rows_read"`
	RowsDropped   int    `json:"rows_dropped"`
	ValuesCoerced int    `json:"values_coerced"`
	Groups        int    `json:"groups"`
	DateMode      string `json:"date_mode"`
}

// SkippedFile is an extract that failed while streaming.
type SkippedFile struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Result is the combined aggregate table of one run.
type Result struct {
	Level         timeseries.Frequency `json:"aggregation_level"`
	Profile       string               `json:"profile"`
	SegmentColumn string               `json:"segment_column"`
	Rows          []AggregateRow       `json:"rows"`
	Files         []FileStats          `json:"files"`
	Skipped       []SkippedFile        `json:"skipped,omitempty"`
}

// Periods returns the number of distinct periods in the table.
func (r *Result) Periods() int {
	seen := make(map[int]struct{})
	for _, row := range r.Rows {
		seen[row.Period.Ordinal()] = struct{}{}
	}
	return len(seen)
}

// ExtractSeries builds per-segment series from the table. The profile's own
// segment column name is accepted as an alias of ColumnSegment.
func (r *Result) ExtractSeries(segmentColumn, valueColumn string, minPeriods int) (map[string]timeseries.Series, error) {
	if segmentColumn == r.SegmentColumn {
		segmentColumn = ColumnSegment
	}
	return ExtractSeries(r.Rows, segmentColumn, valueColumn, minPeriods)
}
