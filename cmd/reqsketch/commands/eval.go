package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/reqsketch/pkg/accuracy"
	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/report"
)

const (
	defaultEvalN      = 100_000
	defaultEvalTrials = 20
	defaultEvalSeed   = 1
)

type evalOptions struct {
	k           int
	hra         bool
	n           int
	trials      int
	seed        uint64
	ranks       []float64
	orders      []string
	parallelism int
	format      string
}

// NewEvalCommand creates the eval command.
func NewEvalCommand() *cobra.Command {
	var opts evalOptions

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Measure rank error against exact ranks",
		Long: `Feed the integers 0..n-1 in sorted, reversed and shuffled order into
independent sketches and compare the estimated ranks with the exact ones.
The mean, spread and worst error of every probed rank are reported next to
the predicted relative standard error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := report.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			orders := make([]accuracy.Order, 0, len(opts.orders))
			for _, o := range opts.orders {
				orders = append(orders, accuracy.Order(o))
			}

			results, err := accuracy.Evaluate(cmd.Context(), accuracy.Config{
				K:           opts.k,
				HRA:         opts.hra,
				N:           opts.n,
				Trials:      opts.trials,
				Seed:        opts.seed,
				Ranks:       opts.ranks,
				Orders:      orders,
				Parallelism: opts.parallelism,
			})
			if err != nil {
				return err
			}

			if format != report.FormatTable {
				return report.Encode(cmd.OutOrStdout(), format, results)
			}

			report.WriteAccuracy(cmd.OutOrStdout(), results)

			return nil
		},
	}

	cmd.Flags().IntVar(&opts.k, flagK, req.DefaultK, "Accuracy parameter")
	cmd.Flags().BoolVar(&opts.hra, flagHRA, true, "Favor accuracy at high ranks")
	cmd.Flags().IntVar(&opts.n, "n", defaultEvalN, "Stream length")
	cmd.Flags().IntVar(&opts.trials, "trials", defaultEvalTrials, "Independent sketches per stream order")
	cmd.Flags().Uint64Var(&opts.seed, flagSeed, defaultEvalSeed, "Base seed of the trials")
	cmd.Flags().Float64SliceVar(&opts.ranks, "ranks", nil, "Ranks to probe (default 0.01 through 0.99)")
	cmd.Flags().StringSliceVar(&opts.orders, "orders", nil, "Stream orders: sorted, reversed, shuffled (default all)")
	cmd.Flags().IntVar(&opts.parallelism, "parallelism", 0, "Concurrent trials (0 uses GOMAXPROCS)")
	registerFormat(cmd, &opts.format)

	return cmd
}
