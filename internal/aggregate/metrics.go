package aggregate

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the ingest counters.
const MeterName = "github.com/godilite/sales-trends/internal/aggregate"

type ingestMetrics struct {
	rowsRead      metric.Int64Counter
	rowsDropped   metric.Int64Counter
	valuesCoerced metric.Int64Counter
	files         metric.Int64Counter
}

func newIngestMetrics(meter metric.Meter) (*ingestMetrics, error) {
	rowsRead, err := meter.Int64Counter(
		"ingest_rows_read_total",
		metric.WithDescription("Total number of source rows read"),
	)
	if err != nil {
		return nil, err
	}

	rowsDropped, err := meter.Int64Counter(
		"ingest_rows_dropped_total",
		metric.WithDescription("Total number of source rows dropped for an unparseable date"),
	)
	if err != nil {
		return nil, err
	}

	valuesCoerced, err := meter.Int64Counter(
		"ingest_values_coerced_total",
		metric.WithDescription("Total number of numeric values coerced to zero"),
	)
	if err != nil {
		return nil, err
	}

	files, err := meter.Int64Counter(
		"ingest_files_total",
		metric.WithDescription("Total number of source files processed, by status"),
	)
	if err != nil {
		return nil, err
	}

	return &ingestMetrics{
		rowsRead:      rowsRead,
		rowsDropped:   rowsDropped,
		valuesCoerced: valuesCoerced,
		files:         files,
	}, nil
}

func (m *ingestMetrics) recordFile(ctx context.Context, profile string, stats FileStats) {
	attrs := metric.WithAttributes(attribute.String("profile", profile))
	m.rowsRead.Add(ctx, int64(stats.RowsRead), attrs)
	m.rowsDropped.Add(ctx, int64(stats.RowsDropped), attrs)
	m.valuesCoerced.Add(ctx, int64(stats.ValuesCoerced), attrs)
	m.files.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", profile),
		attribute.String("status", "ok"),
	))
}

func (m *ingestMetrics) recordSkipped(ctx context.Context, profile string) {
	m.files.Add(ctx, 1, metric.WithAttributes(
		attribute.String("profile", profile),
		attribute.String("status", "skipped"),
	))
}
