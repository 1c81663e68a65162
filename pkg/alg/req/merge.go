package req

import "fmt"

// Merge folds other into s. Both sketches must share k and accuracy mode.
// other is only read; merging a sketch into itself is allowed. Merging an
// empty sketch is a no-op and merging into an empty sketch copies other.
func (s *Sketch[T]) Merge(other *Sketch[T]) error {
	if other == nil {
		return fmt.Errorf("%w: nil sketch", ErrInvalidArgument)
	}

	if s.k != other.k || s.hra != other.hra {
		return fmt.Errorf("%w: k=%d hra=%t cannot merge k=%d hra=%t",
			ErrIncompatibleSketch, s.k, s.hra, other.k, other.hra)
	}

	if other.IsEmpty() {
		return nil
	}

	if s == other {
		other = other.Clone()
	}

	if s.IsEmpty() {
		s.copyLevels(other)

		return nil
	}

	if s.cmp.Less(other.minItem, s.minItem) {
		s.minItem = other.minItem
	}

	if s.cmp.Less(s.maxItem, other.maxItem) {
		s.maxItem = other.maxItem
	}

	for len(s.levels) < len(other.levels) {
		s.grow()
	}

	for h, oc := range other.levels {
		s.levels[h].merge(oc, s.cmp)
	}

	s.n += other.n
	s.compress()

	return nil
}

func (s *Sketch[T]) copyLevels(other *Sketch[T]) {
	s.levels = make([]*compactor[T], len(other.levels))
	for h, c := range other.levels {
		s.levels[h] = c.clone()
	}

	s.n = other.n
	s.minItem = other.minItem
	s.maxItem = other.maxItem
}
