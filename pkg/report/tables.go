package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/reqsketch/pkg/accuracy"
)

// rankPrecision is the number of decimals printed for ranks and masses.
const rankPrecision = 6

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func formatRank(v float64) string {
	return strconv.FormatFloat(v, 'f', rankPrecision, 64)
}

// WriteSummary renders s as a two-column table.
func WriteSummary(w io.Writer, s Summary) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Property", "Value"})

	if s.Name != "" {
		tbl.AppendRow(table.Row{"Name", s.Name})
	}

	tbl.AppendRows([]table.Row{
		{"K", s.K},
		{"Mode", s.Mode()},
		{"N", humanize.Comma(int64(min(s.N, math.MaxInt64)))},
		{"Retained items", humanize.Comma(int64(s.Retained))},
		{"Levels", s.Levels},
		{"Estimation mode", s.EstimationMode},
	})

	if s.Min != "" {
		tbl.AppendRow(table.Row{"Min item", s.Min})
		tbl.AppendRow(table.Row{"Max item", s.Max})
	}

	if s.SerializedSize > 0 {
		tbl.AppendRow(table.Row{"Serialized size", humanize.Bytes(uint64(s.SerializedSize))})
	}

	tbl.Render()
}

// WriteQuantiles renders one row per normalized rank.
func WriteQuantiles[T any](w io.Writer, ranks []float64, quantiles []T) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Rank", "Quantile"})

	for i, r := range ranks {
		tbl.AppendRow(table.Row{formatRank(r), fmt.Sprint(quantiles[i])})
	}

	tbl.Render()
}

// WriteRanks renders the estimated normalized rank of each item.
func WriteRanks[T any](w io.Writer, items []T, ranks []float64) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Item", "Rank"})

	for i, item := range items {
		tbl.AppendRow(table.Row{fmt.Sprint(item), formatRank(ranks[i])})
	}

	tbl.Render()
}

// WriteDistribution renders PMF masses or CDF values against the intervals
// the split points define. values has one more entry than splits.
func WriteDistribution[T any](w io.Writer, header string, splits []T, values []float64, inclusive, cumulative bool) {
	var labels []string
	if cumulative {
		labels = CDFLabels(splits, inclusive)
	} else {
		labels = IntervalLabels(splits, inclusive)
	}

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Interval", header})
	tbl.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	for i, v := range values {
		tbl.AppendRow(table.Row{labels[i], formatRank(v)})
	}

	tbl.Render()
}

// Bound is a rank with its confidence interval.
type Bound struct {
	Rank      float64 `json:"rank"        yaml:"rank"`
	NumStdDev int     `json:"num_std_dev" yaml:"num_std_dev"`
	Lower     float64 `json:"lower"       yaml:"lower"`
	Upper     float64 `json:"upper"       yaml:"upper"`
}

// WriteBounds renders rank confidence intervals.
func WriteBounds(w io.Writer, bounds []Bound) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Rank", "Std devs", "Lower", "Upper"})

	for _, b := range bounds {
		tbl.AppendRow(table.Row{formatRank(b.Rank), b.NumStdDev, formatRank(b.Lower), formatRank(b.Upper)})
	}

	tbl.Render()
}

// WriteAccuracy renders one table per stream order. The mean error column
// is green within one RSE, yellow within three and red beyond.
func WriteAccuracy(w io.Writer, results []accuracy.Result) {
	good := color.New(color.FgGreen)
	fair := color.New(color.FgYellow)
	poor := color.New(color.FgRed)

	for _, res := range results {
		tbl := newTable(w)
		tbl.SetTitle("%s stream, k=%d, n=%s, %d trials", res.Order, res.K, humanize.Comma(int64(res.N)), res.Trials)
		tbl.AppendHeader(table.Row{"Rank", "RSE", "Mean error", "Std dev", "Max |error|", "Within RSE"})

		for _, rr := range res.Ranks {
			painter := poor

			switch abs := math.Abs(rr.MeanError); {
			case abs <= rr.RSE:
				painter = good
			case abs <= 3*rr.RSE:
				painter = fair
			}

			tbl.AppendRow(table.Row{
				formatRank(rr.Rank),
				formatRank(rr.RSE),
				painter.Sprint(formatRank(rr.MeanError)),
				formatRank(rr.StdDev),
				formatRank(rr.MaxAbsError),
				fmt.Sprintf("%.0f%%", rr.WithinRSE*100),
			})
		}

		tbl.Render()
		fmt.Fprintln(w)
	}
}

// IntervalLabels names the PMF intervals defined by splits. Exclusive
// intervals are closed on the left, inclusive ones on the right.
func IntervalLabels[T any](splits []T, inclusive bool) []string {
	labels := make([]string, 0, len(splits)+1)

	if len(splits) == 0 {
		return append(labels, "[min, max]")
	}

	if inclusive {
		labels = append(labels, fmt.Sprintf("[min, %v]", splits[0]))
		for i := 1; i < len(splits); i++ {
			labels = append(labels, fmt.Sprintf("(%v, %v]", splits[i-1], splits[i]))
		}

		return append(labels, fmt.Sprintf("(%v, max]", splits[len(splits)-1]))
	}

	labels = append(labels, fmt.Sprintf("[min, %v)", splits[0]))
	for i := 1; i < len(splits); i++ {
		labels = append(labels, fmt.Sprintf("[%v, %v)", splits[i-1], splits[i]))
	}

	return append(labels, fmt.Sprintf("[%v, max]", splits[len(splits)-1]))
}

// CDFLabels names the CDF entries defined by splits.
func CDFLabels[T any](splits []T, inclusive bool) []string {
	op := "<"
	if inclusive {
		op = "<="
	}

	labels := make([]string, 0, len(splits)+1)
	for _, s := range splits {
		labels = append(labels, fmt.Sprintf("%s %v", op, s))
	}

	return append(labels, "<= max")
}
