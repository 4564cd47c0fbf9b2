package plot

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderDistributionHTML writes a standalone HTML page with observed bars
// and the Benford curve on top.
func RenderDistributionHTML(w io.Writer, d DigitDistribution) error {
	labels := d.labels()
	if len(labels) == 0 {
		return ErrNoData
	}

	observed := make([]opts.BarData, len(labels))
	for i := range labels {
		if i < len(d.Observed) {
			observed[i] = opts.BarData{Value: d.Observed[i]}
		}
	}
	expected := make([]opts.LineData, len(labels))
	for i := range labels {
		if i < len(d.Expected) {
			expected[i] = opts.LineData{Value: d.Expected[i]}
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: d.Title}),
		charts.WithTitleOpts(opts.Title{Title: d.Title, Subtitle: d.Subtitle}),
		charts.WithXAxisOpts(opts.XAxis{Name: "digit"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "%"}),
	)
	bar.SetXAxis(labels).AddSeries("Observed", observed)

	line := charts.NewLine()
	line.SetXAxis(labels).AddSeries("Benford", expected)
	bar.Overlap(line)

	return bar.Render(w)
}
