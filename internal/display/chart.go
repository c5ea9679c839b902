package display

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// renderChart writes an HTML line chart of the photon time series.
func renderChart(w io.Writer, xs []int64, ys []float64) error {
	labels := make([]string, len(xs))
	data := make([]opts.LineData, len(ys))
	for i := range xs {
		labels[i] = fmt.Sprintf("%d", xs[i])
		data[i] = opts.LineData{Value: ys[i]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Photon Count Monitor",
			Theme:     "dark",
			Width:     "1200px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Photon Count Monitor",
			Subtitle: fmt.Sprintf("points=%d", len(data)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "photons/px"}),
	)

	line.SetXAxis(labels)
	line.AddSeries("photons", data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false), ShowSymbol: opts.Bool(false)}))

	return line.Render(w)
}
