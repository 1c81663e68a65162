package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/reqsketch/pkg/report"
)

type inspectOptions struct {
	itemType string
	format   string
	levels   bool
	items    bool
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var opts inspectOptions

	cmd := &cobra.Command{
		Use:   "inspect <sketch-file>",
		Short: "Describe the internal state of a sketch file",
		Long: `Describe a sketch file: its parameters, stream length and extrema.
--levels adds per-level capacities and --items dumps every retained item
with its weight. --format json or yaml prints the summary only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			switch opts.itemType {
			case typeFloat:
				return runInspect(cmd, floatDomain(), args[0], format, opts)
			case typeInt:
				return runInspect(cmd, intDomain(), args[0], format, opts)
			case typeString:
				return runInspect(cmd, stringDomain(), args[0], format, opts)
			default:
				return unknownType(opts.itemType)
			}
		},
	}

	registerType(cmd, &opts.itemType)
	registerFormat(cmd, &opts.format)
	cmd.Flags().BoolVar(&opts.levels, "levels", false, "Describe every level")
	cmd.Flags().BoolVar(&opts.items, "items", false, "Dump retained items")

	return cmd
}

func runInspect[T any](cmd *cobra.Command, d domain[T], path string, format report.Format, opts inspectOptions) error {
	sk, size, err := d.load(path)
	if err != nil {
		return err
	}

	if format != report.FormatTable {
		return report.Encode(cmd.OutOrStdout(), format, report.SummaryOf(path, sk, size))
	}

	fmt.Fprint(cmd.OutOrStdout(), sk.Describe(opts.levels, opts.items))

	return nil
}
