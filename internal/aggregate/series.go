package aggregate

import (
	"fmt"

	"github.com/godilite/sales-trends/internal/timeseries"
)

// ExtractSeries groups rows by segmentColumn and sums valueColumn per period.
// segmentColumn is ColumnSegment or one of the extra key columns. Rows with
// an empty label are skipped, and series with fewer than minPeriods distinct
// periods are left out.
func ExtractSeries(rows []AggregateRow, segmentColumn, valueColumn string, minPeriods int) (map[string]timeseries.Series, error) {
	if _, ok := (AggregateRow{}).Value(valueColumn); !ok {
		return nil, fmt.Errorf("%w: value column %q", ErrUnknownColumn, valueColumn)
	}
	if segmentColumn != ColumnSegment && !hasDimension(rows, segmentColumn) {
		return nil, fmt.Errorf("%w: segment column %q", ErrUnknownColumn, segmentColumn)
	}

	points := make(map[string][]timeseries.Point)
	freq := make(map[string]timeseries.Frequency)
	for _, row := range rows {
		label := row.Segment
		if segmentColumn != ColumnSegment {
			label = row.Dimensions[segmentColumn]
		}
		if label == "" {
			continue
		}
		v, _ := row.Value(valueColumn)
		points[label] = append(points[label], timeseries.Point{Period: row.Period, Value: v})
		freq[label] = row.Period.Freq
	}

	out := make(map[string]timeseries.Series, len(points))
	for label, pts := range points {
		s := timeseries.New(label, freq[label], pts)
		if s.Len() < minPeriods {
			continue
		}
		out[label] = s
	}
	return out, nil
}

func hasDimension(rows []AggregateRow, column string) bool {
	for _, row := range rows {
		if _, ok := row.Dimensions[column]; ok {
			return true
		}
	}
	return false
}
