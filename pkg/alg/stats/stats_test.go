package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		val, lo, hi float64
		expected    float64
	}{
		{name: "within_range", val: 0.5, lo: 0.0, hi: 1.0, expected: 0.5},
		{name: "below_min", val: -0.1, lo: 0.0, hi: 1.0, expected: 0.0},
		{name: "above_max", val: 1.2, lo: 0.0, hi: 1.0, expected: 1.0},
		{name: "at_max", val: 1.0, lo: 0.0, hi: 1.0, expected: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, tt.expected, Clamp(tt.val, tt.lo, tt.hi), 0.0001)
		})
	}
}

func TestClampInt(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 10, Clamp(15, 0, 10))
}

func TestMeanStdDev(t *testing.T) {
	t.Parallel()

	mean, stddev := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, 2.0, stddev, 1e-12)

	mean, stddev = MeanStdDev(nil)
	assert.Zero(t, mean)
	assert.Zero(t, stddev)
}

func TestMaxAbs(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 3.0, MaxAbs([]float64{1, -3, 2}), 1e-12)
	assert.Zero(t, MaxAbs(nil))
	assert.False(t, math.IsNaN(MaxAbs([]float64{0})))
}

func TestExactRank(t *testing.T) {
	t.Parallel()

	sorted := []int{1, 2, 2, 3, 4}

	assert.InDelta(t, 0.2, ExactRank(sorted, 2, false), 1e-12)
	assert.InDelta(t, 0.6, ExactRank(sorted, 2, true), 1e-12)
	assert.InDelta(t, 0.0, ExactRank(sorted, 0, true), 1e-12)
	assert.InDelta(t, 1.0, ExactRank(sorted, 9, false), 1e-12)
	assert.Zero(t, ExactRank([]int{}, 1, true))
}

func TestExactQuantile(t *testing.T) {
	t.Parallel()

	sorted := []int{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

	assert.Equal(t, 50, ExactQuantile(sorted, 0.5, true))
	assert.Equal(t, 60, ExactQuantile(sorted, 0.5, false))
	assert.Equal(t, 10, ExactQuantile(sorted, 0, true))
	assert.Equal(t, 100, ExactQuantile(sorted, 1, false))
	assert.Equal(t, 100, ExactQuantile(sorted, 2, true))
	assert.Zero(t, ExactQuantile([]int{}, 0.5, true))
}
