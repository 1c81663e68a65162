package req

import (
	"fmt"
	"math"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/stats"
)

// Error model constants.
const (
	// fixedRSEFactor caps the relative standard error at fixedRSEFactor/k.
	fixedRSEFactor = 0.084

	// relRSEFactorSq is the squared relative error factor before dividing
	// by the initial section count.
	relRSEFactorSq = 0.0512

	// rseLevels is the level count assumed by RSE, which has no sketch to
	// inspect. Any value above one disables the single-level exact case.
	rseLevels = 2

	minStdDev = 1
	maxStdDev = 3
)

var relRSEFactor = math.Sqrt(relRSEFactorSq / initNumSections)

// RSE returns the a-priori relative standard error of a rank estimate for a
// sketch with resolution k in the given mode after n updates. Ranks the
// sketch still tracks exactly have zero error. rank is clamped to [0, 1] and
// k is normalized the way New normalizes it.
func RSE(k int, rank float64, hra bool, n uint64) float64 {
	nk := uint16(stats.Clamp(k&^1, minK, maxK)) //nolint:gosec // clamped.

	return rse(nk, rseLevels, stats.Clamp(rank, 0, 1), hra, n)
}

func rse(k uint16, numLevels int, rank float64, hra bool, n uint64) float64 {
	if isExactRank(k, numLevels, rank, hra, n) {
		return 0
	}

	tail := rank
	if hra {
		tail = 1 - rank
	}

	return min(relRSEFactor/float64(k)*tail, fixedRSEFactor/float64(k))
}

// isExactRank reports whether rank falls in the region the sketch keeps at
// full resolution: everything while one level exists or n fits the base
// capacity, otherwise the top (HRA) or bottom (LRA) k*3 items.
func isExactRank(k uint16, numLevels int, rank float64, hra bool, n uint64) bool {
	baseCap := uint64(k) * initNumSections
	if numLevels == 1 || n <= baseCap {
		return true
	}

	exactRankThresh := float64(baseCap) / float64(n)
	if hra {
		return rank >= 1-exactRankThresh
	}

	return rank <= exactRankThresh
}

// RankLowerBound returns rank minus numStdDev standard errors, clamped to
// [0, 1]. numStdDev must be 1, 2 or 3.
func (s *Sketch[T]) RankLowerBound(rank float64, numStdDev int) (float64, error) {
	delta, err := s.boundDelta(rank, numStdDev)
	if err != nil {
		return 0, err
	}

	return stats.Clamp(rank-delta, 0, 1), nil
}

// RankUpperBound returns rank plus numStdDev standard errors, clamped to
// [0, 1]. numStdDev must be 1, 2 or 3.
func (s *Sketch[T]) RankUpperBound(rank float64, numStdDev int) (float64, error) {
	delta, err := s.boundDelta(rank, numStdDev)
	if err != nil {
		return 0, err
	}

	return stats.Clamp(rank+delta, 0, 1), nil
}

func (s *Sketch[T]) boundDelta(rank float64, numStdDev int) (float64, error) {
	if err := checkRank(rank); err != nil {
		return 0, err
	}

	if numStdDev < minStdDev || numStdDev > maxStdDev {
		return 0, fmt.Errorf("%w: numStdDev must be 1, 2 or 3, got %d", ErrInvalidArgument, numStdDev)
	}

	return float64(numStdDev) * rse(s.k, len(s.levels), rank, s.hra, s.n), nil
}
