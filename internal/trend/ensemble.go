package trend

import (
	"github.com/godilite/sales-trends/internal/timeseries"
)

const (
	mannKendallWeight = 0.3
	firstLastWeight   = 0.2
	maxLinearWeight   = 0.5
)

// ensembleWeights returns the normalized estimator weights for a series of
// n points. Linear regression gains weight with length up to a cap.
func ensembleWeights(n int) Weights {
	linear := min(maxLinearWeight, float64(n)/20)
	total := linear + mannKendallWeight + firstLastWeight
	return Weights{
		LinearRegression: linear / total,
		MannKendall:      mannKendallWeight / total,
		FirstLast:        firstLastWeight / total,
	}
}

// DetectTrend runs the three estimators on s and combines their votes.
func (a *Analyzer) DetectTrend(s timeseries.Series) TrendResult {
	n := s.Len()
	if n < a.minPeriods {
		return TrendResult{
			Direction:    InsufficientData,
			Confidence:   0,
			RateOfChange: 0,
			Method:       MethodNone,
			DataPoints:   n,
		}
	}

	y := s.Values()
	methods := Methods{
		LinearRegression: linearTrend(y, a.significance),
		MannKendall:      mannKendallVote(y, a.mannKendall),
		FirstLast:        firstLastComparison(y),
	}
	weights := ensembleWeights(n)
	direction, confidence := vote(methods, weights)

	// The Mann-Kendall slope stays out of the blended rate.
	rate := (methods.LinearRegression.RateOfChange*weights.LinearRegression +
		methods.FirstLast.RateOfChange*weights.FirstLast) /
		(weights.LinearRegression + weights.FirstLast)

	return TrendResult{
		Direction:      direction,
		Confidence:     confidence,
		RateOfChange:   rate,
		RateUnit:       RateUnitPercentPerPeriod,
		Methods:        &methods,
		Weights:        &weights,
		DataPoints:     n,
		AnalysisPeriod: s.Span(),
	}
}

// vote accumulates each estimator's weight into its direction bucket. Ties
// resolve in the order increasing, decreasing, stable. Error votes count
// for no bucket.
func vote(m Methods, w Weights) (Direction, float64) {
	buckets := map[Direction]float64{}
	buckets[m.LinearRegression.Direction] += w.LinearRegression
	buckets[m.MannKendall.Direction] += w.MannKendall
	buckets[m.FirstLast.Direction] += w.FirstLast

	best, bestWeight := Increasing, buckets[Increasing]
	for _, d := range []Direction{Decreasing, Stable} {
		if buckets[d] > bestWeight {
			best, bestWeight = d, buckets[d]
		}
	}
	return best, bestWeight
}
