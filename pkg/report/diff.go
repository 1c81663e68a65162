package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"
)

// DiffStats counts the summary lines that differ.
type DiffStats struct {
	Added   int
	Removed int
}

// Changed reports whether the summaries differ.
func (d DiffStats) Changed() bool {
	return d.Added > 0 || d.Removed > 0
}

// DiffSummaries writes a line diff of the YAML renderings of a and b,
// prefixing removed lines with "-", added lines with "+" and unchanged ones
// with a space. Colors follow the color package's terminal detection.
func DiffSummaries(w io.Writer, a, b Summary) (DiffStats, error) {
	left, err := yaml.Marshal(a)
	if err != nil {
		return DiffStats{}, fmt.Errorf("marshal summary: %w", err)
	}

	right, err := yaml.Marshal(b)
	if err != nil {
		return DiffStats{}, fmt.Errorf("marshal summary: %w", err)
	}

	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(string(left), string(right))
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)

	var stats DiffStats

	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			line = strings.TrimSuffix(line, "\n")

			switch d.Type {
			case diffmatchpatch.DiffInsert:
				stats.Added++

				added.Fprintf(w, "+ %s\n", line)
			case diffmatchpatch.DiffDelete:
				stats.Removed++

				removed.Fprintf(w, "- %s\n", line)
			case diffmatchpatch.DiffEqual:
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	return stats, nil
}
