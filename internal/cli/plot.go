package cli

import (
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series is the average duration of one strategy at each swept size.
type Series struct {
	Name      string
	Sizes     []int
	Durations []time.Duration
}

// WriteSweepPlot draws one line per series, duration in milliseconds
// against matrix size, and saves it to path. The image format follows the
// file extension (png, svg, pdf, ...).
func WriteSweepPlot(path string, series []Series) error {
	if len(series) == 0 {
		return errors.New("no series to plot")
	}
	p := plot.New()
	p.Title.Text = "Matrix multiplication time"
	p.X.Label.Text = "n"
	p.Y.Label.Text = "average duration (ms)"
	p.Legend.Top = true
	p.Legend.Left = true

	lines := make([]any, 0, 2*len(series))
	for _, s := range series {
		if len(s.Sizes) != len(s.Durations) {
			return fmt.Errorf("series %s: %d sizes but %d durations", s.Name, len(s.Sizes), len(s.Durations))
		}
		pts := make(plotter.XYs, len(s.Sizes))
		for i := range s.Sizes {
			pts[i].X = float64(s.Sizes[i])
			pts[i].Y = float64(s.Durations[i]) / float64(time.Millisecond)
		}
		lines = append(lines, s.Name, pts)
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return fmt.Errorf("building sweep plot: %w", err)
	}
	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("saving sweep plot: %w", err)
	}
	return nil
}
