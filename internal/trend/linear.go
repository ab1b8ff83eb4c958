package trend

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// linearTrend fits value = intercept + slope*index by least squares and
// tests the slope against zero with a two-sided t-test on n-2 degrees of
// freedom.
func linearTrend(y []float64, significance float64) LinearVote {
	n := len(y)
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)
	mean := stat.Mean(y, nil)
	xMean := stat.Mean(x, nil)

	var ssRes, ssTot, sxx float64
	for i := range y {
		r := y[i] - (intercept + slope*x[i])
		ssRes += r * r
		d := y[i] - mean
		ssTot += d * d
		dx := x[i] - xMean
		sxx += dx * dx
	}

	rSquared := 0.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}

	pValue := 1.0
	stdErr := 0.0
	if n > 2 {
		stdErr = math.Sqrt(ssRes / float64(n-2) / sxx)
		switch {
		case stdErr > 0:
			t := slope / stdErr
			dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
			pValue = 2 * (1 - dist.CDF(math.Abs(t)))
		case slope != 0:
			// exact fit
			pValue = 0
		}
	}

	direction := Stable
	if pValue <= significance {
		if slope > 0 {
			direction = Increasing
		} else if slope < 0 {
			direction = Decreasing
		}
	}

	rate := 0.0
	if mean != 0 {
		rate = slope / mean * 100
	}

	return LinearVote{
		Direction:    direction,
		Slope:        slope,
		Intercept:    intercept,
		RSquared:     rSquared,
		StdErr:       stdErr,
		PValue:       pValue,
		RateOfChange: rate,
		Confidence:   1 - pValue,
		Method:       MethodLinearRegression,
	}
}
