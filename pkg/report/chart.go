package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart palette and sizing.
const (
	chartWidth  = "100%"
	chartHeight = "480px"

	colorCDF  = "#a16207"
	colorPMF  = "#0e7490"
	colorText = "#44403c"
	colorGrid = "#e7e5e4"
	colorAxis = "#a8a29e"

	dataZoomEndPercent = 100
)

func initOpts() opts.Initialization {
	return opts.Initialization{
		Width:           chartWidth,
		Height:          chartHeight,
		BackgroundColor: "transparent",
	}
}

func titleOpts(title, subtitle string) opts.Title {
	return opts.Title{
		Title:         title,
		Subtitle:      subtitle,
		Left:          "center",
		TitleStyle:    &opts.TextStyle{Color: colorText},
		SubtitleStyle: &opts.TextStyle{Color: colorAxis},
	}
}

func xAxisOpts(name string) opts.XAxis {
	return opts.XAxis{
		Name:      name,
		AxisLabel: &opts.AxisLabel{Color: colorText},
		AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: colorAxis}},
	}
}

func yAxisOpts(name string) opts.YAxis {
	return opts.YAxis{
		Name:      name,
		Min:       0,
		AxisLabel: &opts.AxisLabel{Color: colorText},
		AxisLine:  &opts.AxisLine{LineStyle: &opts.LineStyle{Color: colorAxis}},
		SplitLine: &opts.SplitLine{
			Show:      opts.Bool(true),
			LineStyle: &opts.LineStyle{Color: colorGrid},
		},
	}
}

func dataZoomOpts() []opts.DataZoom {
	return []opts.DataZoom{
		{Type: "slider", Start: 0, End: dataZoomEndPercent},
		{Type: "inside"},
	}
}

// CDFChart plots cumulative values against split points. values has one
// more entry than splits; the last, always 1, is plotted at "max".
func CDFChart[T any](title string, splits []T, values []float64) *charts.Line {
	labels := make([]string, 0, len(values))
	for _, s := range splits {
		labels = append(labels, fmt.Sprint(s))
	}

	labels = append(labels, "max")

	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(titleOpts(title, "Cumulative distribution")),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(dataZoomOpts()...),
		charts.WithXAxisOpts(xAxisOpts("split point")),
		charts.WithYAxisOpts(yAxisOpts("rank")),
	)

	line.SetXAxis(labels)
	line.AddSeries("CDF", data,
		charts.WithItemStyleOpts(opts.ItemStyle{Color: colorCDF}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorCDF}),
		charts.WithLineChartOpts(opts.LineChart{Step: "end"}),
	)

	return line
}

// PMFChart plots probability masses per interval.
func PMFChart[T any](title string, splits []T, masses []float64, inclusive bool) *charts.Bar {
	data := make([]opts.BarData, len(masses))
	for i, m := range masses {
		data[i] = opts.BarData{Value: m}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts()),
		charts.WithTitleOpts(titleOpts(title, "Probability mass per interval")),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(dataZoomOpts()...),
		charts.WithXAxisOpts(xAxisOpts("interval")),
		charts.WithYAxisOpts(yAxisOpts("mass")),
	)

	bar.SetXAxis(IntervalLabels(splits, inclusive))
	bar.AddSeries("PMF", data, charts.WithItemStyleOpts(opts.ItemStyle{Color: colorPMF}))

	return bar
}

// RenderPage writes a standalone HTML page holding the charts.
func RenderPage(w io.Writer, title string, chartList ...components.Charter) error {
	page := components.NewPage()
	page.PageTitle = title
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(chartList...)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	return nil
}
