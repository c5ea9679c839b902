package display

import (
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// renderPNG writes a PNG line plot of the photon time series, for saving a
// snapshot of the run without a browser.
func renderPNG(w io.Writer, xs []int64, ys []float64) error {
	p := plot.New()
	p.Title.Text = "Photon Count Monitor"
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "photons/px"

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = float64(xs[i])
		pts[i].Y = ys[i]
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Add(plotter.NewGrid())

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
