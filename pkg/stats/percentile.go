package stats

import "math"

// Percentile returns the p-th percentile of an ascending-sorted sample set
// using the nearest-rank rule: index ceil(p/100 * n) - 1, clamped to the
// valid range. An empty sample set yields 0.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}

	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}
