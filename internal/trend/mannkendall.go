package trend

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// mannKendallAlpha is the level of the test's own trend decision.
const mannKendallAlpha = 0.05

// MannKendallResult is the outcome of a Mann-Kendall test.
type MannKendallResult struct {
	// Trend is Increasing, Decreasing, or Stable for "no trend".
	Trend     Direction
	S         float64
	VarS      float64
	Z         float64
	P         float64
	Tau       float64
	Slope     float64
	Intercept float64
}

// MannKendallFunc runs a Mann-Kendall test on a series.
type MannKendallFunc func(x []float64) (MannKendallResult, error)

// MannKendall is the original (non-corrected) Mann-Kendall test with Sen's
// slope and the matching intercept.
func MannKendall(x []float64) (MannKendallResult, error) {
	n := len(x)
	if n < 2 {
		return MannKendallResult{}, fmt.Errorf("%w: need at least 2 observations, got %d", ErrMannKendall, n)
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return MannKendallResult{}, fmt.Errorf("%w: non-finite observation", ErrMannKendall)
		}
	}

	var s float64
	for k := 0; k < n-1; k++ {
		for j := k + 1; j < n; j++ {
			s += sign(x[j] - x[k])
		}
	}

	ties := make(map[float64]int, n)
	for _, v := range x {
		ties[v]++
	}
	fn := float64(n)
	varS := fn * (fn - 1) * (2*fn + 5)
	if len(ties) < n {
		for _, tp := range ties {
			t := float64(tp)
			varS -= t * (t - 1) * (2*t + 5)
		}
	}
	varS /= 18

	var z float64
	switch {
	case s > 0:
		z = (s - 1) / math.Sqrt(varS)
	case s < 0:
		z = (s + 1) / math.Sqrt(varS)
	}

	p := 2 * (1 - distuv.UnitNormal.CDF(math.Abs(z)))
	significant := math.Abs(z) > distuv.UnitNormal.Quantile(1-mannKendallAlpha/2)

	result := MannKendallResult{
		Trend: Stable,
		S:     s,
		VarS:  varS,
		Z:     z,
		P:     p,
		Tau:   s / (0.5 * fn * (fn - 1)),
	}
	switch {
	case significant && z > 0:
		result.Trend = Increasing
	case significant && z < 0:
		result.Trend = Decreasing
	}

	result.Slope = sensSlope(x)
	result.Intercept = median(x) - (fn-1)/2*result.Slope
	return result, nil
}

func sensSlope(x []float64) float64 {
	slopes := make([]float64, 0, len(x)*(len(x)-1)/2)
	for i := 1; i < len(x); i++ {
		for j := 0; j < i; j++ {
			slopes = append(slopes, (x[i]-x[j])/float64(i-j))
		}
	}
	return median(slopes)
}

// median averages the two middle values of an even-length sample.
func median(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), x...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return stat.Mean(sorted[mid-1:mid+1], nil)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// mannKendallVote runs test on y and turns any failure into a neutral vote.
func mannKendallVote(y []float64, test MannKendallFunc) MannKendallVote {
	res, err := test(y)
	if err != nil {
		return MannKendallVote{
			Direction:  DirectionError,
			Confidence: 0,
			Method:     MethodMannKendall,
			Error:      err.Error(),
		}
	}

	vote := MannKendallVote{
		Direction:  res.Trend,
		S:          ptr(res.S),
		Z:          ptr(res.Z),
		PValue:     ptr(res.P),
		Confidence: 1 - res.P,
		Tau:        ptr(res.Tau),
		Slope:      ptr(res.Slope),
		Intercept:  ptr(res.Intercept),
		Method:     MethodMannKendall,
	}
	if vote.Direction != Increasing && vote.Direction != Decreasing {
		vote.Direction = Stable
	}
	return vote
}

func ptr(v float64) *float64 {
	return &v
}
