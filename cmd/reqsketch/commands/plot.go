package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/report"
)

const defaultPlotBins = 20

type plotOptions struct {
	itemType  string
	output    string
	splits    []string
	bins      int
	inclusive bool
}

// NewPlotCommand creates the plot command.
func NewPlotCommand() *cobra.Command {
	var opts plotOptions

	cmd := &cobra.Command{
		Use:   "plot <sketch-file>",
		Short: "Render the CDF and PMF of a sketch file as an HTML page",
		Long: `Render an HTML page with the cumulative distribution and probability mass
of a sketch file. Split points default to the quantiles at evenly spaced ranks;
--split-points sets them explicitly. Without --output the page goes to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.itemType {
			case typeFloat:
				return runPlot(cmd, floatDomain(), args[0], opts)
			case typeInt:
				return runPlot(cmd, intDomain(), args[0], opts)
			case typeString:
				return runPlot(cmd, stringDomain(), args[0], opts)
			default:
				return unknownType(opts.itemType)
			}
		},
	}

	registerType(cmd, &opts.itemType)
	cmd.Flags().StringVarP(&opts.output, flagOutput, "o", "", "HTML file to write (default stdout)")
	cmd.Flags().StringSliceVar(&opts.splits, "split-points", nil, "Strictly increasing split points")
	cmd.Flags().IntVar(&opts.bins, "bins", defaultPlotBins, "Number of evenly spaced rank bins when no split points are given")
	cmd.Flags().BoolVar(&opts.inclusive, flagInclusive, false, "Close intervals on the right")

	return cmd
}

func runPlot[T any](cmd *cobra.Command, d domain[T], path string, opts plotOptions) (err error) {
	sk, _, err := d.load(path)
	if err != nil {
		return err
	}

	if sk.IsEmpty() {
		return fmt.Errorf("%s: %w", path, req.ErrEmptySketch)
	}

	var splits []T
	if len(opts.splits) > 0 {
		splits, err = d.parseAll(opts.splits)
	} else {
		splits, err = d.evenSplits(sk, opts.bins)
	}

	if err != nil {
		return err
	}

	cdf, err := sk.CDF(splits, opts.inclusive)
	if err != nil {
		return err
	}

	pmf, err := sk.PMF(splits, opts.inclusive)
	if err != nil {
		return err
	}

	name := filepath.Base(path)
	title := fmt.Sprintf("%s (n=%d, k=%d)", name, sk.N(), sk.K())

	var out io.Writer = cmd.OutOrStdout()

	if opts.output != "" {
		file, createErr := os.Create(opts.output)
		if createErr != nil {
			return fmt.Errorf("create plot file: %w", createErr)
		}

		defer func() {
			err = errors.Join(err, file.Close())
		}()

		out = file
	}

	return report.RenderPage(out, title,
		report.CDFChart("Cumulative distribution", splits, cdf),
		report.PMFChart("Probability mass", splits, pmf, opts.inclusive),
	)
}
