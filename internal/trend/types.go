package trend

import (
	"errors"

	"github.com/godilite/sales-trends/internal/timeseries"
)

var (
	ErrEmptySeries     = errors.New("series is empty")
	ErrNonFiniteValue  = errors.New("series contains a non-finite value")
	ErrSegmentPanic    = errors.New("segment analysis panicked")
	ErrMannKendall     = errors.New("mann-kendall test failed")
	ErrDecomposition   = errors.New("seasonal decomposition failed")
	ErrInvalidSettings = errors.New("invalid analyzer settings")
)

// Direction is the vocabulary of estimator votes and combined results.
type Direction string

const (
	Increasing       Direction = "increasing"
	Decreasing       Direction = "decreasing"
	Stable           Direction = "stable"
	InsufficientData Direction = "insufficient_data"
	DirectionError   Direction = "error"
)

// Model selects additive or multiplicative seasonal decomposition.
type Model string

const (
	Additive       Model = "additive"
	Multiplicative Model = "multiplicative"
)

const (
	MethodNone             = "none"
	MethodRollingMean      = "rolling_mean"
	MethodLinearRegression = "linear_regression"
	MethodMannKendall      = "mann_kendall"
	MethodFirstLast        = "first_last_comparison"

	RateUnitPercentPerPeriod = "percent_per_period"

	ReasonInsufficientData = "insufficient_data"
	ReasonTooShort         = "too_short"
)

// Decomposition describes how a series was deseasonalized.
type Decomposition struct {
	Method           string  `json:"method"`
	Reason           string  `json:"reason,omitempty"`
	Period           int     `json:"period,omitempty"`
	Window           int     `json:"window,omitempty"`
	SeasonalStrength float64 `json:"seasonal_strength"`
	TrendStrength    float64 `json:"trend_strength"`
	// FallbackError holds the decomposition failure that led to smoothing.
	FallbackError string `json:"fallback_error,omitempty"`
}

type LinearVote struct {
	Direction    Direction `json:"direction"`
	Slope        float64   `json:"slope"`
	Intercept    float64   `json:"intercept"`
	RSquared     float64   `json:"r_squared"`
	StdErr       float64   `json:"std_err"`
	PValue       float64   `json:"p_value"`
	RateOfChange float64   `json:"rate_of_change"`
	Confidence   float64   `json:"confidence"`
	Method       string    `json:"method"`
}

// MannKendallVote numeric fields are nil when the test failed.
type MannKendallVote struct {
	Direction  Direction `json:"direction"`
	S          *float64  `json:"s"`
	Z          *float64  `json:"z"`
	PValue     *float64  `json:"p_value"`
	Confidence float64   `json:"confidence"`
	Tau        *float64  `json:"tau"`
	Slope      *float64  `json:"slope"`
	Intercept  *float64  `json:"intercept"`
	Method     string    `json:"method"`
	Error      string    `json:"error,omitempty"`
}

type FirstLastVote struct {
	Direction    Direction `json:"direction"`
	FirstAvg     float64   `json:"first_avg"`
	LastAvg      float64   `json:"last_avg"`
	ChangeRatio  float64   `json:"change_ratio"`
	RateOfChange float64   `json:"rate_of_change"`
	Method       string    `json:"method"`
}

type Methods struct {
	LinearRegression LinearVote      `json:"linear_regression"`
	MannKendall      MannKendallVote `json:"mann_kendall"`
	FirstLast        FirstLastVote   `json:"first_last_comparison"`
}

// Weights are the normalized vote weights of the three estimators.
type Weights struct {
	LinearRegression float64 `json:"linear_regression"`
	MannKendall      float64 `json:"mann_kendall"`
	FirstLast        float64 `json:"first_last_comparison"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.LinearRegression + w.MannKendall + w.FirstLast
}

type TrendResult struct {
	Direction      Direction `json:"direction"`
	Confidence     float64   `json:"confidence"`
	RateOfChange   float64   `json:"rate_of_change"`
	RateUnit       string    `json:"rate_unit,omitempty"`
	Method         string    `json:"method,omitempty"`
	Methods        *Methods  `json:"methods_used,omitempty"`
	Weights        *Weights  `json:"weights,omitempty"`
	DataPoints     int       `json:"data_points,omitempty"`
	AnalysisPeriod string    `json:"analysis_period,omitempty"`
}

type BasicStats struct {
	Mean           float64 `json:"mean"`
	Std            float64 `json:"std"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	Count          int     `json:"count"`
	CV             float64 `json:"cv"`
	FirstValue     float64 `json:"first_value"`
	LastValue      float64 `json:"last_value"`
	TotalChange    float64 `json:"total_change"`
	TotalChangePct float64 `json:"total_change_pct"`
}

// SegmentAnalysis is the per-segment result of a run. A failed segment
// carries only its name, Error, and an error-direction trend.
type SegmentAnalysis struct {
	SegmentName    string             `json:"segment_name"`
	BasicStats     *BasicStats        `json:"basic_stats,omitempty"`
	Decomposition  *Decomposition     `json:"decomposition,omitempty"`
	Trend          TrendResult        `json:"trend_analysis"`
	Raw            *timeseries.Series `json:"raw_data,omitempty"`
	Deseasonalized *timeseries.Series `json:"deseasonalized_data,omitempty"`
	Error          string             `json:"error,omitempty"`
}

// Failed reports whether the segment produced a degraded record.
func (s SegmentAnalysis) Failed() bool {
	return s.Error != ""
}

func failedSegment(name string, err error) SegmentAnalysis {
	return SegmentAnalysis{
		SegmentName: name,
		Error:       err.Error(),
		Trend: TrendResult{
			Direction:    DirectionError,
			Confidence:   0,
			RateOfChange: 0,
		},
	}
}
