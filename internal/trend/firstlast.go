package trend

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// firstLastThreshold is the relative change between the leading and
// trailing windows below which the series counts as stable.
const firstLastThreshold = 0.05

// firstLastComparison compares the means of the leading and trailing
// quarter of the series.
func firstLastComparison(y []float64) FirstLastVote {
	n := len(y)
	split := max(1, n/4)

	first := stat.Mean(y[:split], nil)
	last := stat.Mean(y[n-split:], nil)

	var ratio, rate float64
	if first != 0 {
		ratio = (last - first) / math.Abs(first)
		if n > 1 {
			rate = ratio * 100 / float64(n-1)
		}
	}

	direction := Stable
	if math.Abs(ratio) > firstLastThreshold {
		if ratio > 0 {
			direction = Increasing
		} else {
			direction = Decreasing
		}
	}

	return FirstLastVote{
		Direction:    direction,
		FirstAvg:     first,
		LastAvg:      last,
		ChangeRatio:  ratio,
		RateOfChange: rate,
		Method:       MethodFirstLast,
	}
}
