package req

import "iter"

// All returns the retained items paired with their weights, level by level
// from level 0 up, each level in ascending order. The sequence reads the
// live buffers, so it must not be consumed across a mutation of s.
func (s *Sketch[T]) All() iter.Seq2[T, uint64] {
	return func(yield func(T, uint64) bool) {
		for _, c := range s.levels {
			w := c.weight()
			for _, item := range c.items {
				if !yield(item, w) {
					return
				}
			}
		}
	}
}
