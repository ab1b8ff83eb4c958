package trend

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// components holds a classical decomposition of a series.
type components struct {
	trend    []float64
	seasonal []float64
	resid    []float64
}

// classicalDecompose splits x into trend, seasonal, and residual components
// using a centered moving average for the trend. The trend ends the moving
// average cannot reach are extrapolated linearly from the nearest period
// trend points so every component has len(x) values.
func classicalDecompose(x []float64, period int, model Model) (components, error) {
	n := len(x)
	if period < 2 {
		return components{}, fmt.Errorf("%w: period %d is below 2", ErrDecomposition, period)
	}
	if n < 2*period {
		return components{}, fmt.Errorf("%w: %d observations cover less than two periods of %d", ErrDecomposition, n, period)
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return components{}, fmt.Errorf("%w: series has missing values", ErrDecomposition)
		}
		if model == Multiplicative && v <= 0 {
			return components{}, fmt.Errorf("%w: multiplicative model needs strictly positive values", ErrDecomposition)
		}
	}

	trend := movingAverage(x, seasonalFilter(period))
	extrapolateTrend(trend, period)

	detrended := make([]float64, n)
	for i := range x {
		if model == Multiplicative {
			detrended[i] = x[i] / trend[i]
		} else {
			detrended[i] = x[i] - trend[i]
		}
	}

	averages := make([]float64, period)
	for i := 0; i < period; i++ {
		var sum float64
		var count int
		for j := i; j < n; j += period {
			sum += detrended[j]
			count++
		}
		averages[i] = sum / float64(count)
	}
	center := stat.Mean(averages, nil)
	for i := range averages {
		if model == Multiplicative {
			averages[i] /= center
		} else {
			averages[i] -= center
		}
	}

	seasonal := make([]float64, n)
	resid := make([]float64, n)
	for i := range x {
		seasonal[i] = averages[i%period]
		if model == Multiplicative {
			resid[i] = detrended[i] / seasonal[i]
		} else {
			resid[i] = detrended[i] - seasonal[i]
		}
	}

	for _, part := range [][]float64{trend, seasonal, resid} {
		for _, v := range part {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return components{}, fmt.Errorf("%w: non-finite component", ErrDecomposition)
			}
		}
	}

	return components{trend: trend, seasonal: seasonal, resid: resid}, nil
}

// seasonalFilter is the centered moving-average filter of one period. Even
// periods use the 2xP filter with half weights on both ends.
func seasonalFilter(period int) []float64 {
	if period%2 == 0 {
		w := make([]float64, period+1)
		for i := range w {
			w[i] = 1 / float64(period)
		}
		w[0] = 0.5 / float64(period)
		w[period] = 0.5 / float64(period)
		return w
	}
	w := make([]float64, period)
	for i := range w {
		w[i] = 1 / float64(period)
	}
	return w
}

// movingAverage applies a symmetric, odd-length filter. Positions the
// filter cannot cover are NaN.
func movingAverage(x, filter []float64) []float64 {
	half := len(filter) / 2
	out := make([]float64, len(x))
	for i := range x {
		if i < half || i >= len(x)-half {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for k, w := range filter {
			sum += w * x[i-half+k]
		}
		out[i] = sum
	}
	return out
}

// extrapolateTrend fills the NaN ends of trend with least-squares lines.
// The front line is fitted on the npoints values starting at the first
// defined one; the back line on the npoints values before the last defined
// one, which itself is left out of the fit.
func extrapolateTrend(trend []float64, npoints int) {
	front, back := -1, -1
	for i, v := range trend {
		if !math.IsNaN(v) {
			if front < 0 {
				front = i
			}
			back = i
		}
	}
	if front < 0 {
		return
	}

	frontLast := min(front+npoints, back)
	k, c := fitLine(trend, front, frontLast)
	for i := 0; i < front; i++ {
		trend[i] = k*float64(i) + c
	}

	backFirst := max(front, back-npoints)
	k, c = fitLine(trend, backFirst, back)
	for i := back + 1; i < len(trend); i++ {
		trend[i] = k*float64(i) + c
	}
}

// fitLine fits y[i] = k*i + c over i in [lo, hi). A single point yields the
// minimum-norm solution, matching a least-squares solve of an
// underdetermined system.
func fitLine(y []float64, lo, hi int) (k, c float64) {
	m := hi - lo
	switch {
	case m <= 0:
		return 0, y[lo]
	case m == 1:
		x := float64(lo)
		denom := x*x + 1
		return x * y[lo] / denom, y[lo] / denom
	}

	xs := make([]float64, m)
	for i := range xs {
		xs[i] = float64(lo + i)
	}
	c, k = stat.LinearRegression(xs, y[lo:hi], nil, false)
	return k, c
}

// strength is var(component) / (var(component) + var(resid)) with
// population variances, or 0 when the denominator is 0.
func strength(component, resid []float64) float64 {
	cv := stat.PopVariance(component, nil)
	rv := stat.PopVariance(resid, nil)
	if cv+rv <= 0 || math.IsNaN(cv+rv) {
		return 0
	}
	return cv / (cv + rv)
}

// rollingMean is a centered rolling mean with window w. Positions without a
// full window are back-filled and then forward-filled.
func rollingMean(x []float64, w int) []float64 {
	n := len(x)
	offset := (w - 1) / 2
	out := make([]float64, n)
	for i := range out {
		end := i + 1 + offset
		start := end - w
		if start < 0 || end > n {
			out[i] = math.NaN()
			continue
		}
		var sum float64
		for _, v := range x[start:end] {
			sum += v
		}
		out[i] = sum / float64(w)
	}

	next := math.NaN()
	for i := n - 1; i >= 0; i-- {
		if math.IsNaN(out[i]) {
			out[i] = next
		} else {
			next = out[i]
		}
	}
	prev := math.NaN()
	for i := range out {
		if math.IsNaN(out[i]) {
			out[i] = prev
		} else {
			prev = out[i]
		}
	}
	return out
}
