// Package stats provides the exact reference statistics that sketch
// estimates are measured against.
// All standard deviation calculations use population stddev (÷n, not ÷(n−1)).
package stats

import (
	"cmp"
	"math"
	"sort"
)

// Mean returns the arithmetic mean of values.
// Returns 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64

	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// MeanStdDev returns the arithmetic mean and population standard deviation.
// Returns (0, 0) for an empty slice.
func MeanStdDev(values []float64) (mean, stddev float64) {
	count := len(values)
	if count == 0 {
		return 0, 0
	}

	mean = Mean(values)

	var sumSq float64

	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}

	return mean, math.Sqrt(sumSq / float64(count))
}

// Clamp restricts val to the range [lo, hi].
func Clamp[T cmp.Ordered](val, lo, hi T) T {
	return max(lo, min(val, hi))
}

// MaxAbs returns the largest absolute value in values.
// Returns 0 for an empty slice.
func MaxAbs(values []float64) float64 {
	var result float64

	for _, v := range values {
		result = max(result, math.Abs(v))
	}

	return result
}

// ExactRank returns the fraction of sorted that is below v, or at or below
// v when inclusive is set. sorted must be ascending.
// Returns 0 for an empty slice.
func ExactRank[T cmp.Ordered](sorted []T, v T, inclusive bool) float64 {
	if len(sorted) == 0 {
		return 0
	}

	var idx int
	if inclusive {
		idx = sort.Search(len(sorted), func(i int) bool { return sorted[i] > v })
	} else {
		idx = sort.Search(len(sorted), func(i int) bool { return sorted[i] >= v })
	}

	return float64(idx) / float64(len(sorted))
}

// ExactQuantile returns the smallest element of sorted whose rank reaches
// rank (inclusive) or exceeds it (exclusive). rank is clamped to [0, 1].
// Returns the zero value of T for an empty slice.
func ExactQuantile[T cmp.Ordered](sorted []T, rank float64, inclusive bool) T {
	count := len(sorted)
	if count == 0 {
		var zero T

		return zero
	}

	weight := Clamp(rank, 0, 1) * float64(count)

	var idx int
	if inclusive {
		idx = int(math.Ceil(weight)) - 1
	} else {
		idx = int(weight)
	}

	return sorted[Clamp(idx, 0, count-1)]
}
