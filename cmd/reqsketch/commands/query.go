package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/reqsketch/pkg/alg/req"
	"github.com/Sumatoshi-tech/reqsketch/pkg/report"
)

const defaultNumStdDev = 2

// defaultQueryRanks are reported when no query flag is given.
var defaultQueryRanks = []float64{0, 0.25, 0.5, 0.75, 0.9, 0.95, 0.99, 1}

type queryOptions struct {
	itemType  string
	format    string
	inclusive bool
	quantiles []float64
	ranks     []string
	pmf       []string
	cdf       []string
	bounds    []float64
	numStdDev int
}

func (o queryOptions) empty() bool {
	return len(o.quantiles) == 0 && len(o.ranks) == 0 && len(o.pmf) == 0 && len(o.cdf) == 0 && len(o.bounds) == 0
}

type quantileRow[T any] struct {
	Rank     float64 `json:"rank"     yaml:"rank"`
	Quantile T       `json:"quantile" yaml:"quantile"`
}

type rankRow[T any] struct {
	Item T       `json:"item" yaml:"item"`
	Rank float64 `json:"rank" yaml:"rank"`
}

type intervalRow struct {
	Interval string  `json:"interval" yaml:"interval"`
	Value    float64 `json:"value"    yaml:"value"`
}

type queryResult[T any] struct {
	Summary   report.Summary   `json:"summary"             yaml:"summary"`
	Quantiles []quantileRow[T] `json:"quantiles,omitempty" yaml:"quantiles,omitempty"`
	Ranks     []rankRow[T]     `json:"ranks,omitempty"     yaml:"ranks,omitempty"`
	PMF       []intervalRow    `json:"pmf,omitempty"       yaml:"pmf,omitempty"`
	CDF       []intervalRow    `json:"cdf,omitempty"       yaml:"cdf,omitempty"`
	Bounds    []report.Bound   `json:"bounds,omitempty"    yaml:"bounds,omitempty"`

	// Split points are kept for table rendering.
	pmfSplits []T
	cdfSplits []T
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <sketch-file>",
		Short: "Answer rank, quantile and distribution queries from a sketch file",
		Long: `Answer queries from a sketch file built with "reqsketch build".

  --quantiles  items at the given normalized ranks
  --ranks      normalized ranks of the given items
  --pmf        probability mass between the given split points
  --cdf        cumulative distribution at the given split points
  --bounds     confidence interval around the given ranks

Without a query flag the quantiles at common ranks are reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			switch opts.itemType {
			case typeFloat:
				return runQuery(cmd, floatDomain(), args[0], format, opts)
			case typeInt:
				return runQuery(cmd, intDomain(), args[0], format, opts)
			case typeString:
				return runQuery(cmd, stringDomain(), args[0], format, opts)
			default:
				return unknownType(opts.itemType)
			}
		},
	}

	registerType(cmd, &opts.itemType)
	registerFormat(cmd, &opts.format)
	cmd.Flags().BoolVar(&opts.inclusive, flagInclusive, false, "Count items equal to the query point as below it")
	cmd.Flags().Float64SliceVarP(&opts.quantiles, "quantiles", "q", nil, "Normalized ranks in [0, 1]")
	cmd.Flags().StringSliceVarP(&opts.ranks, "ranks", "r", nil, "Items to rank")
	cmd.Flags().StringSliceVar(&opts.pmf, "pmf", nil, "Strictly increasing split points for the PMF")
	cmd.Flags().StringSliceVar(&opts.cdf, "cdf", nil, "Strictly increasing split points for the CDF")
	cmd.Flags().Float64SliceVar(&opts.bounds, "bounds", nil, "Ranks to bound")
	cmd.Flags().IntVar(&opts.numStdDev, "std-dev", defaultNumStdDev, "Standard deviations of the bounds (1, 2 or 3)")

	return cmd
}

func runQuery[T any](cmd *cobra.Command, d domain[T], path string, format report.Format, opts queryOptions) error {
	sk, size, err := d.load(path)
	if err != nil {
		return err
	}

	if opts.empty() {
		opts.quantiles = defaultQueryRanks
	}

	res, err := answer(d, sk, opts)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	res.Summary = report.SummaryOf(path, sk, size)

	out := cmd.OutOrStdout()

	if format != report.FormatTable {
		return report.Encode(out, format, res)
	}

	report.WriteSummary(out, res.Summary)

	if len(res.Quantiles) > 0 {
		fmt.Fprintln(out)

		quantiles := make([]T, len(res.Quantiles))
		for i, q := range res.Quantiles {
			quantiles[i] = q.Quantile
		}

		report.WriteQuantiles(out, opts.quantiles, quantiles)
	}

	if len(res.Ranks) > 0 {
		fmt.Fprintln(out)

		items := make([]T, len(res.Ranks))
		ranks := make([]float64, len(res.Ranks))

		for i, r := range res.Ranks {
			items[i], ranks[i] = r.Item, r.Rank
		}

		report.WriteRanks(out, items, ranks)
	}

	if len(res.PMF) > 0 {
		fmt.Fprintln(out)
		report.WriteDistribution(out, "Mass", res.pmfSplits, values(res.PMF), opts.inclusive, false)
	}

	if len(res.CDF) > 0 {
		fmt.Fprintln(out)
		report.WriteDistribution(out, "Cumulative", res.cdfSplits, values(res.CDF), opts.inclusive, true)
	}

	if len(res.Bounds) > 0 {
		fmt.Fprintln(out)
		report.WriteBounds(out, res.Bounds)
	}

	return nil
}

func answer[T any](d domain[T], sk *req.Sketch[T], opts queryOptions) (queryResult[T], error) {
	var res queryResult[T]

	if sk.IsEmpty() {
		return res, req.ErrEmptySketch
	}

	quantiles, err := sk.Quantiles(opts.quantiles, opts.inclusive)
	if err != nil {
		return res, err
	}

	for i, q := range quantiles {
		res.Quantiles = append(res.Quantiles, quantileRow[T]{Rank: opts.quantiles[i], Quantile: q})
	}

	items, err := d.parseAll(opts.ranks)
	if err != nil {
		return res, err
	}

	for _, item := range items {
		rank, rankErr := sk.Rank(item, opts.inclusive)
		if rankErr != nil {
			return res, rankErr
		}

		res.Ranks = append(res.Ranks, rankRow[T]{Item: item, Rank: rank})
	}

	res.pmfSplits, res.PMF, err = distribution(d, opts.pmf, opts.inclusive, false, sk.PMF)
	if err != nil {
		return res, err
	}

	res.cdfSplits, res.CDF, err = distribution(d, opts.cdf, opts.inclusive, true, sk.CDF)
	if err != nil {
		return res, err
	}

	for _, rank := range opts.bounds {
		lower, lowerErr := sk.RankLowerBound(rank, opts.numStdDev)
		if lowerErr != nil {
			return res, lowerErr
		}

		upper, upperErr := sk.RankUpperBound(rank, opts.numStdDev)
		if upperErr != nil {
			return res, upperErr
		}

		res.Bounds = append(res.Bounds, report.Bound{Rank: rank, NumStdDev: opts.numStdDev, Lower: lower, Upper: upper})
	}

	return res, nil
}

func distribution[T any](
	d domain[T],
	raw []string,
	inclusive, cumulative bool,
	query func([]T, bool) ([]float64, error),
) ([]T, []intervalRow, error) {
	if len(raw) == 0 {
		return nil, nil, nil
	}

	splits, err := d.parseAll(raw)
	if err != nil {
		return nil, nil, err
	}

	vals, err := query(splits, inclusive)
	if err != nil {
		return nil, nil, err
	}

	var labels []string
	if cumulative {
		labels = report.CDFLabels(splits, inclusive)
	} else {
		labels = report.IntervalLabels(splits, inclusive)
	}

	rows := make([]intervalRow, len(vals))
	for i, v := range vals {
		rows[i] = intervalRow{Interval: labels[i], Value: v}
	}

	return splits, rows, nil
}

func values(rows []intervalRow) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}

	return out
}
