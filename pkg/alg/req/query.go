package req

import (
	"fmt"
	"math"
	"sort"
)

// Rank returns the approximate normalized rank of item: the fraction of the
// stream strictly below it, or at or below it when inclusive is set.
// An empty sketch yields NaN for float domains and ErrEmptySketch otherwise.
// A NaN item is ErrInvalidArgument.
func (s *Sketch[T]) Rank(item T, inclusive bool) (float64, error) {
	if s.nan != nil && s.nan.IsNaN(item) {
		return 0, fmt.Errorf("%w: rank of NaN", ErrInvalidArgument)
	}

	if s.IsEmpty() {
		return s.emptyRank()
	}

	var weight uint64

	for _, c := range s.levels {
		weight += uint64(c.count(item, inclusive, s.cmp)) << c.lgWeight //nolint:gosec // count is non-negative.
	}

	return float64(weight) / float64(s.n), nil
}

// count returns how many items of the level are below item (or at or below
// it when inclusive is set).
func (c *compactor[T]) count(item T, inclusive bool, cmp Comparator[T]) int {
	if inclusive {
		return sort.Search(len(c.items), func(i int) bool { return cmp.Less(item, c.items[i]) })
	}

	return sort.Search(len(c.items), func(i int) bool { return !cmp.Less(c.items[i], item) })
}

func (s *Sketch[T]) emptyRank() (float64, error) {
	if s.nan != nil {
		return math.NaN(), nil
	}

	return 0, ErrEmptySketch
}

// Quantile returns the approximate item at the given normalized rank.
// rank outside [0, 1] is ErrInvalidArgument.
func (s *Sketch[T]) Quantile(rank float64, inclusive bool) (T, error) {
	if err := checkRank(rank); err != nil {
		var zero T

		return zero, err
	}

	if s.IsEmpty() {
		return s.emptyItem()
	}

	return s.view().Quantile(rank, inclusive)
}

// Quantiles maps Quantile over ranks against one sorted view. An empty
// sketch yields an empty result.
//
// Deprecated: call Quantile per rank, or View for batches.
func (s *Sketch[T]) Quantiles(ranks []float64, inclusive bool) ([]T, error) {
	for _, r := range ranks {
		if err := checkRank(r); err != nil {
			return nil, err
		}
	}

	if s.IsEmpty() || len(ranks) == 0 {
		return []T{}, nil
	}

	v := s.view()
	out := make([]T, len(ranks))

	for i, r := range ranks {
		q, err := v.Quantile(r, inclusive)
		if err != nil {
			return nil, err
		}

		out[i] = q
	}

	return out, nil
}

// CDF returns len(splitPoints)+1 cumulative masses. Entry j is the rank of
// splitPoints[j]; the final entry is 1. Split points must be strictly
// increasing and free of NaN. An empty sketch yields an empty result.
func (s *Sketch[T]) CDF(splitPoints []T, inclusive bool) ([]float64, error) {
	if err := s.checkSplitPoints(splitPoints); err != nil {
		return nil, err
	}

	if s.IsEmpty() {
		return []float64{}, nil
	}

	v := s.view()
	out := make([]float64, len(splitPoints)+1)

	for i, sp := range splitPoints {
		out[i] = v.Rank(sp, inclusive)
	}

	out[len(splitPoints)] = 1

	return out, nil
}

// PMF returns len(splitPoints)+1 masses of the intervals the split points
// induce. With inclusive unset the intervals are [s[j-1], s[j]) and with it
// set they are (s[j-1], s[j]]. The masses sum to 1.
func (s *Sketch[T]) PMF(splitPoints []T, inclusive bool) ([]float64, error) {
	buckets, err := s.CDF(splitPoints, inclusive)
	if err != nil {
		return nil, err
	}

	for i := len(buckets) - 1; i > 0; i-- {
		buckets[i] -= buckets[i-1]
	}

	return buckets, nil
}

func (s *Sketch[T]) checkSplitPoints(splitPoints []T) error {
	for i, sp := range splitPoints {
		if s.nan != nil && s.nan.IsNaN(sp) {
			return fmt.Errorf("%w: split point %d is NaN", ErrInvalidArgument, i)
		}

		if i > 0 && !s.cmp.Less(splitPoints[i-1], sp) {
			return fmt.Errorf("%w: split points must be unique and increasing (index %d)", ErrInvalidArgument, i)
		}
	}

	return nil
}
