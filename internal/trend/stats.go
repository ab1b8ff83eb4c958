package trend

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// basicStats describes the raw series. Std is the sample standard deviation
// and is 0 for a single observation.
func basicStats(y []float64) BasicStats {
	n := len(y)
	mean := stat.Mean(y, nil)

	std := 0.0
	if n > 1 {
		std = stat.StdDev(y, nil)
	}

	cv := 0.0
	if mean != 0 {
		cv = std / mean
	}

	first, last := y[0], y[n-1]
	change := last - first
	changePct := 0.0
	if first != 0 {
		changePct = change / first * 100
	}

	return BasicStats{
		Mean:           mean,
		Std:            std,
		Min:            floats.Min(y),
		Max:            floats.Max(y),
		Count:          n,
		CV:             cv,
		FirstValue:     first,
		LastValue:      last,
		TotalChange:    change,
		TotalChangePct: changePct,
	}
}
