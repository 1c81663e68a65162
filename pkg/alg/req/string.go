package req

import (
	"fmt"
	"strings"
)

// String returns the summary produced by Describe(false, false).
func (s *Sketch[T]) String() string {
	return s.Describe(false, false)
}

// Describe renders a human-readable summary. printLevels adds one line per
// compactor and printItems dumps the retained items of every level.
func (s *Sketch[T]) Describe(printLevels, printItems bool) string {
	var b strings.Builder

	capacity := 0
	for _, c := range s.levels {
		capacity += int(c.nomCapacity())
	}

	b.WriteString("### REQ sketch summary:\n")
	fmt.Fprintf(&b, "   K              : %d\n", s.k)
	fmt.Fprintf(&b, "   High Rank Acc  : %t\n", s.hra)
	fmt.Fprintf(&b, "   Empty          : %t\n", s.IsEmpty())
	fmt.Fprintf(&b, "   Estimation mode: %t\n", s.IsEstimationMode())
	fmt.Fprintf(&b, "   N              : %d\n", s.n)
	fmt.Fprintf(&b, "   Levels         : %d\n", len(s.levels))
	fmt.Fprintf(&b, "   Retained items : %d\n", s.NumRetained())
	fmt.Fprintf(&b, "   Capacity items : %d\n", capacity)

	if !s.IsEmpty() {
		fmt.Fprintf(&b, "   Min item       : %v\n", s.minItem)
		fmt.Fprintf(&b, "   Max item       : %v\n", s.maxItem)
	}

	b.WriteString("### End sketch summary\n")

	if printLevels {
		b.WriteString("### REQ sketch levels:\n")
		b.WriteString("   index: nominal capacity, actual size\n")

		for h, c := range s.levels {
			fmt.Fprintf(&b, "   %d: %d, %d\n", h, c.nomCapacity(), len(c.items))
		}

		b.WriteString("### End sketch levels\n")
	}

	if printItems {
		b.WriteString("### REQ sketch data:\n")

		for h, c := range s.levels {
			fmt.Fprintf(&b, " level %d: \n", h)

			for _, item := range c.items {
				fmt.Fprintf(&b, "   %v\n", item)
			}
		}

		b.WriteString("### End sketch data\n")
	}

	return b.String()
}
