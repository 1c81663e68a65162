package req

// TotalWeight returns the sum over levels of item count times level weight.
func (s *Sketch[T]) TotalWeight() uint64 {
	var total uint64
	for _, c := range s.levels {
		total += uint64(len(c.items)) << c.lgWeight
	}

	return total
}

// LevelsSorted reports whether every level buffer is ascending.
func (s *Sketch[T]) LevelsSorted() bool {
	for _, c := range s.levels {
		for i := 1; i < len(c.items); i++ {
			if s.cmp.Less(c.items[i], c.items[i-1]) {
				return false
			}
		}
	}

	return true
}

// LevelSizes returns the item count of every level.
func (s *Sketch[T]) LevelSizes() []int {
	sizes := make([]int, len(s.levels))
	for h, c := range s.levels {
		sizes[h] = len(c.items)
	}

	return sizes
}

// LevelCapacity returns the nominal capacity of level h.
func (s *Sketch[T]) LevelCapacity(h int) int {
	return int(s.levels[h].nomCapacity())
}
