package aggregate

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/godilite/sales-trends/internal/timeseries"
)

const (
	DefaultChunkSize      = 50000
	DefaultDateSampleSize = 1000
)

// FileHook is called once per candidate file after it was aggregated or skipped.
type FileHook func(stats FileStats, err error)

type Options struct {
	ChunkSize      int
	DateSampleSize int
	Logger         *zap.Logger
	Meter          metric.Meter
	FileHook       FileHook
}

type Option func(*Options)

// WithChunkSize sets the number of rows per streamed chunk.
func WithChunkSize(n int) Option {
	return func(o *Options) {
		o.ChunkSize = n
	}
}

// WithDateSampleSize sets how many leading rows decide a file's date parsing mode.
func WithDateSampleSize(n int) Option {
	return func(o *Options) {
		o.DateSampleSize = n
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(o *Options) {
		o.Meter = meter
	}
}

func WithFileHook(hook FileHook) Option {
	return func(o *Options) {
		o.FileHook = hook
	}
}

// Aggregator streams CSV extracts of one profile into an aggregate table.
type Aggregator struct {
	profile Profile
	options Options
	logger  *zap.Logger
	metrics *ingestMetrics
}

// New creates an Aggregator for profile.
func New(profile Profile, opts ...Option) (*Aggregator, error) {
	options := Options{
		ChunkSize:      DefaultChunkSize,
		DateSampleSize: DefaultDateSampleSize,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.ChunkSize < 1 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", options.ChunkSize)
	}
	if options.DateSampleSize < 1 {
		options.DateSampleSize = DefaultDateSampleSize
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Meter == nil {
		options.Meter = noop.NewMeterProvider().Meter(MeterName)
	}

	metrics, err := newIngestMetrics(options.Meter)
	if err != nil {
		return nil, fmt.Errorf("create ingest metrics: %w", err)
	}

	return &Aggregator{
		profile: profile,
		options: options,
		logger:  options.Logger.Named("aggregator"),
		metrics: metrics,
	}, nil
}

// Profile returns the source profile the aggregator was built with.
func (a *Aggregator) Profile() Profile {
	return a.profile
}

// Files lists the candidate extracts in dir in processing order.
func (a *Aggregator) Files(dir string) ([]string, error) {
	return a.profile.discover(dir)
}

// Aggregate builds the combined aggregate table for every extract in dir.
// A file that fails while streaming is skipped; the run fails only when no
// file exists or no file yields a row. ctx only scopes metric recording.
func (a *Aggregator) Aggregate(ctx context.Context, dir string, level timeseries.Frequency) (*Result, error) {
	if level.SeasonalPeriod() == 0 {
		return nil, fmt.Errorf("unsupported aggregation level %q", level)
	}

	files, err := a.profile.discover(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoSourceFiles, dir, a.profile.FilePattern)
	}

	var header []string
	if a.profile.HeaderFile != "" {
		header, err = readHeaderFile(filepath.Join(dir, a.profile.HeaderFile))
		if err != nil {
			return nil, err
		}
	}

	result := &Result{
		Level:         level,
		Profile:       a.profile.Name,
		SegmentColumn: a.profile.SegmentColumn,
	}

	for _, path := range files {
		rows, stats, err := a.processFile(path, header, level)
		if a.options.FileHook != nil {
			a.options.FileHook(stats, err)
		}
		if err != nil {
			a.logger.Warn("skipping source file",
				zap.String("file", path),
				zap.Error(err))
			a.metrics.recordSkipped(ctx, a.profile.Name)
			result.Skipped = append(result.Skipped, SkippedFile{File: filepath.Base(path), Error: err.Error()})
			continue
		}

		a.metrics.recordFile(ctx, a.profile.Name, stats)
		a.logger.Info("aggregated source file",
			zap.String("file", stats.File),
			zap.Int("chunks", stats.Chunks),
			zap.Int("rows_read", stats.RowsRead),
			zap.Int("rows_dropped", stats.RowsDropped),
			zap.Int("values_coerced", stats.ValuesCoerced),
			zap.Int("groups", stats.Groups),
			zap.String("date_mode", stats.DateMode))

		result.Files = append(result.Files, stats)
		result.Rows = append(result.Rows, rows...)
	}

	if len(result.Rows) == 0 {
		return nil, ErrNoData
	}

	sortRows(result.Rows)
	return result, nil
}

func readHeaderFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open header template: %w", err)
	}
	defer f.Close()

	header, err := newReader(f).Read()
	if err != nil {
		return nil, fmt.Errorf("read header template %s: %w", filepath.Base(path), err)
	}
	return header, nil
}

func newReader(r io.Reader) *csv.Reader {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false
	return reader
}

// layout resolves column positions of one file.
type layout struct {
	date     int
	segment  int
	quantity int
	revenue  int
	actual   int
	product  int
	numeric  []int
	dimNames []string
	dimIdx   []int
}

func (a *Aggregator) resolve(header []string) (layout, error) {
	names := a.profile.rename(header)
	index := make(map[string]int, len(names))
	for i, n := range names {
		if _, dup := index[n]; !dup {
			index[n] = i
		}
	}
	lookup := func(col string) int {
		if col == "" {
			return -1
		}
		if i, ok := index[col]; ok {
			return i
		}
		return -1
	}

	l := layout{
		date:     lookup(a.profile.DateColumn),
		segment:  lookup(a.profile.SegmentColumn),
		quantity: lookup(a.profile.QuantityColumn),
		revenue:  lookup(a.profile.RevenueColumn),
		actual:   lookup(a.profile.ActualRevenueColumn),
		product:  lookup(a.profile.ProductColumn),
	}

	var missing []string
	if l.date < 0 {
		missing = append(missing, a.profile.DateColumn)
	}
	if l.segment < 0 {
		missing = append(missing, a.profile.SegmentColumn)
	}
	if l.quantity < 0 && l.revenue < 0 && l.actual < 0 {
		missing = append(missing, strings.Join(a.profile.measureColumns(), "|"))
	}
	if len(missing) > 0 {
		return layout{}, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	for _, col := range a.profile.NumericColumns {
		if i := lookup(col); i >= 0 {
			l.numeric = append(l.numeric, i)
		}
	}
	for _, col := range a.profile.KeyColumns {
		if i := lookup(col); i >= 0 {
			l.dimNames = append(l.dimNames, col)
			l.dimIdx = append(l.dimIdx, i)
		}
	}
	return l, nil
}

func (a *Aggregator) processFile(path string, header []string, level timeseries.Frequency) ([]AggregateRow, FileStats, error) {
	stats := FileStats{File: filepath.Base(path)}

	f, err := os.Open(path)
	if err != nil {
		return nil, stats, err
	}
	defer f.Close()

	reader := newReader(f)
	hasHeader := header == nil
	if hasHeader {
		header, err = reader.Read()
		if err != nil {
			return nil, stats, fmt.Errorf("read header: %w", err)
		}
	}

	l, err := a.resolve(header)
	if err != nil {
		return nil, stats, err
	}

	dates := newDateParser(a.profile.DateLayout)
	sample, err := sampleColumn(reader, l.date, a.options.DateSampleSize)
	if err != nil {
		return nil, stats, err
	}
	dates.decide(sample)
	stats.DateMode = dates.mode()

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, stats, fmt.Errorf("rewind: %w", err)
	}
	reader = newReader(f)
	if hasHeader {
		if _, err := reader.Read(); err != nil {
			return nil, stats, fmt.Errorf("read header: %w", err)
		}
	}

	var partials []*table
	chunk := make([][]string, 0, min(a.options.ChunkSize, 4096))
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		partial, dropped, coerced := a.processChunk(chunk, l, dates, level)
		stats.Chunks++
		stats.RowsRead += len(chunk)
		stats.RowsDropped += dropped
		stats.ValuesCoerced += coerced
		partials = append(partials, partial)

		a.logger.Debug("processed chunk",
			zap.String("file", stats.File),
			zap.Int("chunk", stats.Chunks),
			zap.Int("rows", len(chunk)),
			zap.Int("rows_dropped", dropped),
			zap.Int("values_coerced", coerced),
			zap.Int("groups", len(partial.groups)))
		chunk = chunk[:0]
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("read %s: %w", stats.File, err)
		}
		chunk = append(chunk, record)
		if len(chunk) >= a.options.ChunkSize {
			flush()
		}
	}
	flush()

	merged := merge(partials)
	stats.Groups = len(merged.groups)
	return merged.rows(a.profile.provenance(path)), stats, nil
}

// sampleColumn reads up to n values of column col from the reader.
func sampleColumn(reader *csv.Reader, col, n int) ([]string, error) {
	sample := make([]string, 0, n)
	for len(sample) < n {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sample dates: %w", err)
		}
		sample = append(sample, field(record, col))
	}
	return sample, nil
}

func (a *Aggregator) processChunk(chunk [][]string, l layout, dates *dateParser, level timeseries.Frequency) (*table, int, int) {
	partial := newTable()
	dropped, coerced := 0, 0
	dimValues := make([]string, len(l.dimIdx))

	for _, record := range chunk {
		values := make(map[int]float64, len(l.numeric))
		for _, i := range l.numeric {
			v, ok := coerce(field(record, i))
			if !ok {
				coerced++
			}
			values[i] = v
		}

		ts, ok := dates.parse(field(record, l.date))
		if !ok {
			dropped++
			continue
		}

		var period timeseries.Period
		if level == timeseries.Quarterly {
			period = timeseries.QuarterPeriod(ts.Year(), timeseries.QuarterOf(int(ts.Month())))
		} else {
			period = timeseries.MonthPeriod(ts.Year(), int(ts.Month()))
		}

		for i, idx := range l.dimIdx {
			dimValues[i] = strings.TrimSpace(field(record, idx))
		}

		partial.add(period,
			strings.TrimSpace(field(record, l.segment)),
			l.dimNames, dimValues,
			measure(record, values, l.quantity),
			measure(record, values, l.revenue),
			measure(record, values, l.actual),
			strings.TrimSpace(field(record, l.product)),
		)
	}
	return partial, dropped, coerced
}

func field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

// measure returns the coerced value at column i, coercing on the spot when
// the column is not one of the profile's numeric columns.
func measure(record []string, coerced map[int]float64, i int) float64 {
	if i < 0 {
		return 0
	}
	if v, ok := coerced[i]; ok {
		return v
	}
	v, _ := coerce(field(record, i))
	return v
}

// coerce parses a numeric cell. Anything unparseable or non-finite becomes 0
// and reports false.
func coerce(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
