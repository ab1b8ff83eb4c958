package trend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/godilite/sales-trends/internal/timeseries"
)

// MeterName is the instrumentation scope of the analysis metrics.
const MeterName = "github.com/godilite/sales-trends/internal/trend"

const (
	DefaultMinPeriods        = 4
	DefaultSignificanceLevel = 0.05
)

type Options struct {
	MinPeriods        int
	SignificanceLevel float64
	Model             Model
	MannKendall       MannKendallFunc
	Logger            *zap.Logger
	Meter             metric.Meter
}

type Option func(*Options)

// WithMinPeriods sets the minimum series length that is analyzed.
func WithMinPeriods(n int) Option {
	return func(o *Options) {
		o.MinPeriods = n
	}
}

// WithSignificanceLevel sets the level of the linear-regression slope test.
func WithSignificanceLevel(level float64) Option {
	return func(o *Options) {
		o.SignificanceLevel = level
	}
}

// WithModel selects the seasonal decomposition model.
func WithModel(m Model) Option {
	return func(o *Options) {
		o.Model = m
	}
}

// WithMannKendall replaces the Mann-Kendall test implementation.
func WithMannKendall(fn MannKendallFunc) Option {
	return func(o *Options) {
		o.MannKendall = fn
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

// Analyzer deseasonalizes segment series and detects their trend. It holds
// no per-run state and is safe for concurrent use.
type Analyzer struct {
	minPeriods   int
	significance float64
	model        Model
	mannKendall  MannKendallFunc
	logger       *zap.Logger

	segments metric.Int64Counter
	duration metric.Float64Histogram
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...Option) (*Analyzer, error) {
	options := Options{
		MinPeriods:        DefaultMinPeriods,
		SignificanceLevel: DefaultSignificanceLevel,
		Model:             Additive,
		MannKendall:       MannKendall,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.MinPeriods < 3 {
		return nil, fmt.Errorf("%w: min periods must be at least 3, got %d", ErrInvalidSettings, options.MinPeriods)
	}
	if options.SignificanceLevel <= 0 || options.SignificanceLevel >= 1 {
		return nil, fmt.Errorf("%w: significance level must be in (0, 1), got %g", ErrInvalidSettings, options.SignificanceLevel)
	}
	if options.Model != Additive && options.Model != Multiplicative {
		return nil, fmt.Errorf("%w: unknown model %q", ErrInvalidSettings, options.Model)
	}
	if options.MannKendall == nil {
		options.MannKendall = MannKendall
	}
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.Meter == nil {
		options.Meter = noop.NewMeterProvider().Meter(MeterName)
	}

	segments, err := options.Meter.Int64Counter(
		"trend_segments_analyzed_total",
		metric.WithDescription("Total number of segments analyzed, by direction"),
	)
	if err != nil {
		return nil, fmt.Errorf("create segment counter: %w", err)
	}
	duration, err := options.Meter.Float64Histogram(
		"trend_segment_analysis_duration_seconds",
		metric.WithDescription("Segment analysis duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &Analyzer{
		minPeriods:   options.MinPeriods,
		significance: options.SignificanceLevel,
		model:        options.Model,
		mannKendall:  options.MannKendall,
		logger:       options.Logger.Named("trend"),
		segments:     segments,
		duration:     duration,
	}, nil
}

// MinPeriods returns the minimum analyzable series length.
func (a *Analyzer) MinPeriods() int {
	return a.minPeriods
}

// AnalyzeSegment deseasonalizes s, detects the trend of the result, and
// describes the raw series.
func (a *Analyzer) AnalyzeSegment(name string, s timeseries.Series) (SegmentAnalysis, error) {
	if s.Len() == 0 {
		return SegmentAnalysis{}, ErrEmptySeries
	}
	for _, p := range s.Points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return SegmentAnalysis{}, fmt.Errorf("%w at %s", ErrNonFiniteValue, p.Period.Label())
		}
	}

	deseasonalized, decomposition := a.Deseasonalize(s, 0)
	trend := a.DetectTrend(deseasonalized)
	stats := basicStats(s.Values())

	raw := s
	return SegmentAnalysis{
		SegmentName:    name,
		BasicStats:     &stats,
		Decomposition:  &decomposition,
		Trend:          trend,
		Raw:            &raw,
		Deseasonalized: &deseasonalized,
	}, nil
}

// AnalyzeSegments analyzes every series sequentially. A segment that fails
// or panics yields a degraded record and the batch continues. ctx only
// scopes metric recording.
func (a *Analyzer) AnalyzeSegments(ctx context.Context, series map[string]timeseries.Series) map[string]SegmentAnalysis {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]SegmentAnalysis, len(series))
	for _, name := range names {
		start := time.Now()
		res, err := a.safeAnalyze(name, series[name])
		if err != nil {
			a.logger.Warn("segment analysis failed",
				zap.String("segment", name),
				zap.Error(err))
			res = failedSegment(name, err)
		} else {
			a.logger.Debug("segment analyzed",
				zap.String("segment", name),
				zap.String("direction", string(res.Trend.Direction)),
				zap.Float64("confidence", res.Trend.Confidence),
				zap.Float64("rate_of_change", res.Trend.RateOfChange),
				zap.String("decomposition", res.Decomposition.Method))
		}

		a.segments.Add(ctx, 1, metric.WithAttributes(attribute.String("direction", string(res.Trend.Direction))))
		a.duration.Record(ctx, time.Since(start).Seconds())
		results[name] = res
	}
	return results
}

func (a *Analyzer) safeAnalyze(name string, s timeseries.Series) (res SegmentAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSegmentPanic, r)
		}
	}()
	return a.AnalyzeSegment(name, s)
}
