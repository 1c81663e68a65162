package req

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"sort"
)

// SortedView is an immutable snapshot of the retained items in ascending
// order with cumulative weights. It is safe for concurrent use.
type SortedView[T any] struct {
	cmp     Comparator[T]
	items   []T
	cumWts  []uint64 // cumulative weight up to and including items[i]
	total   uint64
	minItem T
	maxItem T
}

// View builds a sorted view of the current sketch state. The view does not
// observe later updates. It returns ErrEmptySketch for an empty sketch.
func (s *Sketch[T]) View() (*SortedView[T], error) {
	if s.IsEmpty() {
		return nil, ErrEmptySketch
	}

	return s.view(), nil
}

func (s *Sketch[T]) view() *SortedView[T] {
	type entry struct {
		item   T
		weight uint64
	}

	entries := make([]entry, 0, s.NumRetained())
	for _, c := range s.levels {
		w := c.weight()
		for _, item := range c.items {
			entries = append(entries, entry{item: item, weight: w})
		}
	}

	order := compareWith(s.cmp)
	slices.SortStableFunc(entries, func(a, b entry) int {
		return order(a.item, b.item)
	})

	v := &SortedView[T]{
		cmp:     s.cmp,
		items:   make([]T, len(entries)),
		cumWts:  make([]uint64, len(entries)),
		total:   s.n,
		minItem: s.minItem,
		maxItem: s.maxItem,
	}

	var cum uint64

	for i, e := range entries {
		cum += e.weight
		v.items[i] = e.item
		v.cumWts[i] = cum
	}

	return v
}

// Len returns the number of distinct retained entries.
func (v *SortedView[T]) Len() int {
	return len(v.items)
}

// Rank returns the normalized weight of items below item, or at or below it
// when inclusive is set. A NaN item of a float domain ranks as NaN.
func (v *SortedView[T]) Rank(item T, inclusive bool) float64 {
	if nc, ok := v.cmp.(NaNComparator[T]); ok && nc.IsNaN(item) {
		return math.NaN()
	}

	var idx int
	if inclusive {
		idx = sort.Search(len(v.items), func(i int) bool { return v.cmp.Less(item, v.items[i]) })
	} else {
		idx = sort.Search(len(v.items), func(i int) bool { return !v.cmp.Less(v.items[i], item) })
	}

	if idx == 0 {
		return 0
	}

	return float64(v.cumWts[idx-1]) / float64(v.total)
}

// Quantile returns the smallest retained item whose cumulative normalized
// weight reaches rank. Exclusive queries need the weight to exceed rank.
// Ranks 0 and 1 map to the exact minimum and maximum.
func (v *SortedView[T]) Quantile(rank float64, inclusive bool) (T, error) {
	if err := checkRank(rank); err != nil {
		var zero T

		return zero, err
	}

	switch rank {
	case 0:
		return v.minItem, nil
	case 1:
		return v.maxItem, nil
	}

	weight := rank * float64(v.total)

	var idx int

	if inclusive {
		target := uint64(math.Ceil(weight))
		idx = sort.Search(len(v.cumWts), func(i int) bool { return v.cumWts[i] >= target })
	} else {
		target := uint64(weight)
		idx = sort.Search(len(v.cumWts), func(i int) bool { return v.cumWts[i] > target })
	}

	if idx >= len(v.items) {
		return v.maxItem, nil
	}

	return v.items[idx], nil
}

// All yields every entry with its cumulative weight in ascending order.
func (v *SortedView[T]) All() iter.Seq2[T, uint64] {
	return func(yield func(T, uint64) bool) {
		for i, item := range v.items {
			if !yield(item, v.cumWts[i]) {
				return
			}
		}
	}
}

func checkRank(rank float64) error {
	if math.IsNaN(rank) || rank < 0 || rank > 1 {
		return fmt.Errorf("%w: rank must be in [0, 1], got %v", ErrInvalidArgument, rank)
	}

	return nil
}
