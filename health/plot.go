/*
DESCRIPTION
  plot.go provides rendering of sample windows as images.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package health

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Plot image size.
const (
	plotWidth  = 8 * vg.Inch
	plotHeight = 4 * vg.Inch
)

var errEmptyWindow = errors.New("empty window")

// Plot draws each channel of w, [time][channel] samples at rate Hz, as a
// trace normalised by fullScale and saves it to path. The image format is
// chosen by the extension of path, e.g. ".png".
func Plot(path string, w [][]float64, rate, fullScale float64) error {
	if len(w) == 0 || len(w[0]) == 0 {
		return errEmptyWindow
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%d channels at %g Hz", len(w[0]), rate)
	p.X.Label.Text = "time (ms)"
	p.Y.Label.Text = "full scale"
	p.Y.Min, p.Y.Max = -1, 1

	for c := range w[0] {
		xys := make(plotter.XYs, len(w))
		for t, row := range w {
			xys[t].X = 1e3 * float64(t) / rate
			xys[t].Y = row[c] / fullScale
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return fmt.Errorf("could not plot channel %d: %w", c, err)
		}
		l.Color = plotutil.Color(c)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("ch %d", c), l)
	}

	return p.Save(plotWidth, plotHeight, path)
}
