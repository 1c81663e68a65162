package req

import (
	"math"
	"math/bits"
	"slices"
	"sort"
)

// Compaction schedule constants.
const (
	minK            = 4
	maxK            = 1024
	initNumSections = 3
	nomCapMult      = 2

	// maxLevels bounds the level count so every level weight fits in a uint64.
	maxLevels = 63
)

// compactor holds one level of the sketch. Every retained item represents
// 2^lgWeight stream elements.
type compactor[T any] struct {
	items          []T
	state          uint64 // number of compactions performed on this level
	sectionSizeRaw float32
	sectionSize    uint32
	numSections    uint32
	lgWeight       uint8
	coin           bool // last coin, reused flipped on odd states
	hra            bool
}

func newCompactor[T any](lgWeight uint8, hra bool, k uint16) *compactor[T] {
	return &compactor[T]{
		sectionSizeRaw: float32(k),
		sectionSize:    uint32(k),
		numSections:    initNumSections,
		lgWeight:       lgWeight,
		hra:            hra,
	}
}

func (c *compactor[T]) nomCapacity() uint32 {
	return nomCapMult * c.numSections * c.sectionSize
}

func (c *compactor[T]) isFull() bool {
	return uint32(len(c.items)) >= c.nomCapacity() //nolint:gosec // level sizes are bounded by capacity.
}

func (c *compactor[T]) weight() uint64 {
	return uint64(1) << c.lgWeight
}

// insert places item after any equal items, keeping the buffer sorted.
func (c *compactor[T]) insert(item T, cmp Comparator[T]) {
	idx := sort.Search(len(c.items), func(i int) bool {
		return cmp.Less(item, c.items[i])
	})
	c.items = slices.Insert(c.items, idx, item)
}

// compact halves a window of the buffer and merges every other item of the
// window into next. The window sits at the low end in HRA mode and at the
// high end otherwise, so the favored end of the rank scale keeps full
// resolution.
func (c *compactor[T]) compact(next *compactor[T], cmp Comparator[T], coins CoinSource) {
	secs := min(uint32(bits.TrailingZeros64(^c.state))+1, c.numSections) //nolint:gosec // at most 64.
	lo, hi := c.compactionRange(secs)

	if hi-lo < 2 {
		panic("req: compaction window smaller than two items")
	}

	if c.state&1 == 1 {
		c.coin = !c.coin
	} else {
		c.coin = coins.Flip()
	}

	start := lo
	if c.coin {
		start++
	}

	promoted := make([]T, 0, (hi-lo)/2)
	for i := start; i < hi; i += 2 {
		promoted = append(promoted, c.items[i])
	}

	next.items = mergeSorted(next.items, promoted, cmp)
	c.items = slices.Delete(c.items, lo, hi)
	c.state++
	c.ensureEnoughSections()
}

// compactionRange returns the [lo, hi) window for secs sections. The window
// always has even length.
func (c *compactor[T]) compactionRange(secs uint32) (lo, hi int) {
	numItems := uint32(len(c.items)) //nolint:gosec // level sizes are bounded by capacity.
	nonCompact := c.nomCapacity()/2 + (c.numSections-secs)*c.sectionSize

	if (numItems-nonCompact)&1 == 1 {
		nonCompact++
	}

	if c.hra {
		return 0, int(numItems - nonCompact)
	}

	return int(nonCompact), int(numItems)
}

// ensureEnoughSections shrinks the section size by sqrt(2) and doubles the
// section count once the level has been compacted 2^(numSections-1) times.
func (c *compactor[T]) ensureEnoughSections() bool {
	if c.numSections-1 >= bitsPerDraw {
		return false
	}

	raw := c.sectionSizeRaw / float32(math.Sqrt2)
	size := nearestEven(raw)

	if c.state >= uint64(1)<<(c.numSections-1) && size >= minK {
		c.sectionSizeRaw = raw
		c.sectionSize = size
		c.numSections <<= 1

		return true
	}

	return false
}

// merge folds other into c. The compaction counters are OR-ed so the merged
// level is at least as far along the schedule as either input.
func (c *compactor[T]) merge(other *compactor[T], cmp Comparator[T]) {
	c.state |= other.state

	for c.ensureEnoughSections() {
	}

	c.items = mergeSorted(c.items, other.items, cmp)
}

func (c *compactor[T]) clone() *compactor[T] {
	cp := *c
	cp.items = slices.Clone(c.items)

	return &cp
}

func nearestEven(v float32) uint32 {
	return uint32(math.Round(float64(v)/2)) << 1
}

// mergeSorted merges two ascending slices into a new ascending slice.
func mergeSorted[T any](a, b []T, cmp Comparator[T]) []T {
	out := make([]T, 0, len(a)+len(b))
	i, j := 0, 0

	for i < len(a) && j < len(b) {
		if cmp.Less(b[j], a[i]) {
			out = append(out, b[j])
			j++
		} else {
			out = append(out, a[i])
			i++
		}
	}

	out = append(out, a[i:]...)

	return append(out, b[j:]...)
}
