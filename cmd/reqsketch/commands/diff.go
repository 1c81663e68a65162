package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/reqsketch/pkg/report"
)

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	var itemType string

	cmd := &cobra.Command{
		Use:   "diff <sketch-a> <sketch-b>",
		Short: "Compare the summaries of two sketch files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				a, b report.Summary
				err  error
			)

			switch itemType {
			case typeFloat:
				a, b, err = summarizePair(floatDomain(), args[0], args[1])
			case typeInt:
				a, b, err = summarizePair(intDomain(), args[0], args[1])
			case typeString:
				a, b, err = summarizePair(stringDomain(), args[0], args[1])
			default:
				return unknownType(itemType)
			}

			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			stats, err := report.DiffSummaries(out, a, b)
			if err != nil {
				return err
			}

			if !stats.Changed() {
				color.New(color.FgGreen).Fprintln(out, "sketch summaries are identical")

				return nil
			}

			color.New(color.FgYellow).Fprintf(out, "%d line(s) added, %d removed\n", stats.Added, stats.Removed)

			return nil
		},
	}

	registerType(cmd, &itemType)

	return cmd
}

// summarizePair summarizes two files without their names so only the
// sketch contents are compared.
func summarizePair[T any](d domain[T], pathA, pathB string) (report.Summary, report.Summary, error) {
	a, sizeA, err := d.load(pathA)
	if err != nil {
		return report.Summary{}, report.Summary{}, err
	}

	b, sizeB, err := d.load(pathB)
	if err != nil {
		return report.Summary{}, report.Summary{}, err
	}

	return report.SummaryOf("", a, sizeA), report.SummaryOf("", b, sizeB), nil
}
