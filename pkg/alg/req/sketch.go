// Package req provides the REQ relative-error streaming quantile sketch.
//
// The sketch keeps a stack of compactors. Level h holds sorted items that each
// stand for 2^h stream elements. When a level reaches its nominal capacity,
// half of a window at one end of its buffer is promoted to the next level and
// the other half is dropped. In high-rank-accuracy (HRA) mode the window is
// taken from the low end, so ranks near 1 keep the most resolution; in
// low-rank-accuracy (LRA) mode the window is taken from the high end.
//
// Rank error is relative: its standard deviation is roughly proportional to
// (1 - rank)/k in HRA mode and rank/k in LRA mode.
//
// A Sketch is not safe for concurrent mutation. Concurrent read-only queries
// on a sketch that is not being mutated are safe.
package req

import (
	"fmt"
)

// DefaultK is the resolution used when callers have no preference.
const DefaultK = 12

// Option configures a Sketch.
type Option func(*options)

type options struct {
	coins CoinSource
}

// WithCoinSource sets the random-bit source used by compactions.
func WithCoinSource(src CoinSource) Option {
	return func(o *options) {
		o.coins = src
	}
}

// WithSeed makes compaction decisions deterministic for the given seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.coins = NewSeededCoins(seed)
	}
}

// Sketch is a REQ quantile sketch over items of type T.
type Sketch[T any] struct {
	cmp     Comparator[T]
	nan     NaNComparator[T] // nil when the domain has no NaN sentinel
	coins   CoinSource
	levels  []*compactor[T]
	minItem T
	maxItem T
	n       uint64
	k       uint16
	hra     bool
}

// New creates an empty sketch ordered by cmp. k controls accuracy and size:
// it must be in [1, 1024], odd values are rounded down and values below 4
// are raised to 4. hra selects high-rank accuracy.
func New[T any](k int, hra bool, cmp Comparator[T], opts ...Option) (*Sketch[T], error) {
	if cmp == nil {
		return nil, fmt.Errorf("%w: nil comparator", ErrInvalidArgument)
	}

	nk, err := normalizeK(k)
	if err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if o.coins == nil {
		o.coins = NewSeededCoins(randomSeed())
	}

	s := &Sketch[T]{
		cmp:   cmp,
		coins: o.coins,
		k:     nk,
		hra:   hra,
	}

	if nc, ok := cmp.(NaNComparator[T]); ok {
		s.nan = nc
	}

	s.grow()

	return s, nil
}

// NewFloat64 creates a float64 sketch that ignores NaN updates and reports
// NaN for queries on an empty sketch.
func NewFloat64(k int, hra bool, opts ...Option) (*Sketch[float64], error) {
	return New[float64](k, hra, FloatOrder[float64]{}, opts...)
}

// NewFloat32 is NewFloat64 for float32 items.
func NewFloat32(k int, hra bool, opts ...Option) (*Sketch[float32], error) {
	return New[float32](k, hra, FloatOrder[float32]{}, opts...)
}

// Ordered is the set of non-float types with a natural total order.
type Ordered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~string
}

// NewOrdered creates a sketch over naturally ordered items. Queries on an
// empty sketch return ErrEmptySketch.
func NewOrdered[T Ordered](k int, hra bool, opts ...Option) (*Sketch[T], error) {
	return New[T](k, hra, NaturalOrder[T]{}, opts...)
}

func normalizeK(k int) (uint16, error) {
	if k < 1 || k > maxK {
		return 0, fmt.Errorf("%w: k must be in [1, %d], got %d", ErrInvalidArgument, maxK, k)
	}

	return uint16(max(k&^1, minK)), nil //nolint:gosec // bounded by maxK.
}

// K returns the resolution parameter.
func (s *Sketch[T]) K() int {
	return int(s.k)
}

// IsHRA reports whether the sketch favors accuracy at high ranks.
func (s *Sketch[T]) IsHRA() bool {
	return s.hra
}

// IsEmpty reports whether no items have been accepted.
func (s *Sketch[T]) IsEmpty() bool {
	return s.n == 0
}

// N returns the number of stream items the sketch represents.
func (s *Sketch[T]) N() uint64 {
	return s.n
}

// NumLevels returns the number of compactor levels.
func (s *Sketch[T]) NumLevels() int {
	return len(s.levels)
}

// NumRetained returns the number of items held across all levels.
func (s *Sketch[T]) NumRetained() int {
	total := 0
	for _, c := range s.levels {
		total += len(c.items)
	}

	return total
}

// IsEstimationMode reports whether any compaction has happened, after which
// answers are approximate.
func (s *Sketch[T]) IsEstimationMode() bool {
	return len(s.levels) > 1
}

// MinItem returns the smallest item seen.
func (s *Sketch[T]) MinItem() (T, error) {
	if s.IsEmpty() {
		return s.emptyItem()
	}

	return s.minItem, nil
}

// MaxItem returns the largest item seen.
func (s *Sketch[T]) MaxItem() (T, error) {
	if s.IsEmpty() {
		return s.emptyItem()
	}

	return s.maxItem, nil
}

func (s *Sketch[T]) emptyItem() (T, error) {
	if s.nan != nil {
		return s.nan.NaN(), nil
	}

	var zero T

	return zero, ErrEmptySketch
}

// Update adds one item. NaN items of float domains are ignored.
func (s *Sketch[T]) Update(item T) {
	if s.nan != nil && s.nan.IsNaN(item) {
		return
	}

	if s.n == 0 {
		s.minItem, s.maxItem = item, item
	} else {
		if s.cmp.Less(item, s.minItem) {
			s.minItem = item
		}

		if s.cmp.Less(s.maxItem, item) {
			s.maxItem = item
		}
	}

	s.levels[0].insert(item, s.cmp)
	s.n++

	if s.levels[0].isFull() {
		s.compress()
	}
}

// UpdateMany adds every item in order.
func (s *Sketch[T]) UpdateMany(items ...T) {
	for _, item := range items {
		s.Update(item)
	}
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Sketch[T]) Clone() *Sketch[T] {
	cp := *s
	cp.levels = make([]*compactor[T], len(s.levels))

	for i, c := range s.levels {
		cp.levels[i] = c.clone()
	}

	if f, ok := s.coins.(ForkableCoinSource); ok {
		cp.coins = f.Fork()
	} else {
		cp.coins = NewSeededCoins(randomSeed())
	}

	return &cp
}

func (s *Sketch[T]) grow() {
	lg := uint8(len(s.levels)) //nolint:gosec // bounded by maxLevels.
	s.levels = append(s.levels, newCompactor[T](lg, s.hra, s.k))
}

// compress walks the levels bottom-up and compacts each level until it is
// below its nominal capacity, adding a level on top when the highest one
// overflows. On return every level holds fewer items than its capacity.
func (s *Sketch[T]) compress() {
	for h := 0; h < len(s.levels); h++ {
		for s.levels[h].isFull() {
			if h+1 == len(s.levels) {
				s.grow()
			}

			s.levels[h].compact(s.levels[h+1], s.cmp, s.coins)
		}
	}
}
