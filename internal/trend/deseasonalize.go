package trend

import (
	"go.uber.org/zap"

	"github.com/godilite/sales-trends/internal/timeseries"
)

// Deseasonalize removes the seasonal pattern from s. period 0 derives the
// period from the series frequency. Series shorter than the minimum period
// count are returned unchanged; series shorter than two seasonal cycles, or
// whose decomposition fails, are smoothed with a centered rolling mean.
func (a *Analyzer) Deseasonalize(s timeseries.Series, period int) (timeseries.Series, Decomposition) {
	n := s.Len()
	if n < a.minPeriods {
		return s, Decomposition{Method: MethodNone, Reason: ReasonInsufficientData}
	}

	if period <= 0 {
		period = s.Freq.SeasonalPeriod()
	}
	if period <= 0 {
		period = min(4, n/2)
	}

	if n < 2*period {
		return smooth(s)
	}

	parts, err := classicalDecompose(s.Values(), period, a.model)
	if err != nil {
		a.logger.Debug("seasonal decomposition failed, using rolling mean",
			zap.String("segment", s.Name),
			zap.Int("period", period),
			zap.Error(err))
		out, info := smooth(s)
		info.FallbackError = err.Error()
		return out, info
	}

	return s.WithValues(parts.trend), Decomposition{
		Method:           "seasonal_decompose_" + string(a.model),
		Period:           period,
		SeasonalStrength: strength(parts.seasonal, parts.resid),
		TrendStrength:    strength(parts.trend, parts.resid),
	}
}

func smooth(s timeseries.Series) (timeseries.Series, Decomposition) {
	window := min(3, s.Len()/2)
	if window < 2 {
		return s, Decomposition{Method: MethodNone, Reason: ReasonTooShort}
	}
	return s.WithValues(rollingMean(s.Values(), window)), Decomposition{
		Method: MethodRollingMean,
		Window: window,
	}
}
