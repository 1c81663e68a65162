// Package safeconv converts between integer widths where a value out of range
// means a broken invariant. Out of range conversions panic.
package safeconv

import (
	"fmt"
	"math"
)

// MustUint64ToInt converts a count known to fit in memory.
func MustUint64ToInt(v uint64) int {
	if v > math.MaxInt {
		outOfRange(v, "int")
	}

	return int(v)
}

// MustIntToUint64 converts a length or count, which is never negative.
func MustIntToUint64(v int) uint64 {
	if v < 0 {
		outOfRange(v, "uint64")
	}

	return uint64(v)
}

// MustIntToUint32 converts a length bounded by an on-disk uint32 field.
func MustIntToUint32(v int) uint32 {
	if v < 0 || uint64(v) > math.MaxUint32 {
		outOfRange(v, "uint32")
	}

	return uint32(v)
}

func outOfRange(v any, target string) {
	panic(fmt.Sprintf("safeconv: %v out of %s range", v, target))
}
