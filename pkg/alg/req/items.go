package req

import (
	"cmp"
	"math"
)

// Comparator defines the total order of sketch items.
type Comparator[T any] interface {
	Less(a, b T) bool
}

// NaNComparator is a Comparator for domains with a "no value" sentinel.
// Sketches built on it skip sentinel updates and answer empty-sketch queries
// with NaN() instead of ErrEmptySketch.
type NaNComparator[T any] interface {
	Comparator[T]
	IsNaN(item T) bool
	NaN() T
}

// LessFunc adapts an ordinary less function to a Comparator.
type LessFunc[T any] func(a, b T) bool

// Less reports whether a orders before b.
func (f LessFunc[T]) Less(a, b T) bool {
	return f(a, b)
}

// NaturalOrder orders items with the < operator.
type NaturalOrder[T cmp.Ordered] struct{}

// Less reports whether a < b.
func (NaturalOrder[T]) Less(a, b T) bool {
	return cmp.Less(a, b)
}

// FloatOrder orders floating-point items and treats NaN as the missing value.
type FloatOrder[T ~float32 | ~float64] struct{}

// Less reports whether a < b.
func (FloatOrder[T]) Less(a, b T) bool {
	return a < b
}

// IsNaN reports whether item is NaN.
func (FloatOrder[T]) IsNaN(item T) bool {
	return item != item
}

// NaN returns the NaN value of T.
func (FloatOrder[T]) NaN() T {
	return T(math.NaN())
}

// compareWith turns a Comparator into a three-way comparison for slices.SortFunc.
func compareWith[T any](c Comparator[T]) func(a, b T) int {
	return func(a, b T) int {
		switch {
		case c.Less(a, b):
			return -1
		case c.Less(b, a):
			return 1
		default:
			return 0
		}
	}
}
