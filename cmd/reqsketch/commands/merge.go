package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/reqsketch/pkg/safeconv"
)

type mergeOptions struct {
	itemType string
	output   string
}

// NewMergeCommand creates the merge command.
func NewMergeCommand() *cobra.Command {
	var opts mergeOptions

	cmd := &cobra.Command{
		Use:   "merge <sketch-file>...",
		Short: "Merge sketch files built with the same k and accuracy mode",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.output == "" {
				return ErrOutputRequired
			}

			switch opts.itemType {
			case typeFloat:
				return runMerge(cmd, floatDomain(), args, opts.output)
			case typeInt:
				return runMerge(cmd, intDomain(), args, opts.output)
			case typeString:
				return runMerge(cmd, stringDomain(), args, opts.output)
			default:
				return unknownType(opts.itemType)
			}
		},
	}

	registerType(cmd, &opts.itemType)
	cmd.Flags().StringVarP(&opts.output, flagOutput, "o", "", "Sketch file to write")

	return cmd
}

func runMerge[T any](cmd *cobra.Command, d domain[T], inputs []string, output string) error {
	acc, _, err := d.load(inputs[0])
	if err != nil {
		return err
	}

	for _, path := range inputs[1:] {
		sk, _, loadErr := d.load(path)
		if loadErr != nil {
			return loadErr
		}

		err = acc.Merge(sk)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	size, err := d.save(output, acc)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "merged %d sketch(es) into %s: n=%s, %s retained, %s\n",
		len(inputs),
		output,
		humanize.Comma(int64(safeconv.MustUint64ToInt(acc.N()))),
		humanize.Comma(int64(acc.NumRetained())),
		humanize.Bytes(safeconv.MustIntToUint64(size)),
	)

	return nil
}
