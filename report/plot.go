// Package report renders training history.
package report

import (
	"io"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/neurago/pkg/errors"
)

// Default canvas size of a loss plot.
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// LossPlot builds a line plot of the per-epoch loss, with epochs numbered
// from 1 and the lowest loss marked.
func LossPlot(history []float64) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, errors.NewArgumentError("history", "must contain at least one epoch", 0)
	}

	pts := make(plotter.XYs, len(history))
	for i, l := range history {
		pts[i].X = float64(i + 1)
		pts[i].Y = l
	}

	p := plot.New()
	p.Title.Text = "Training loss"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "report.LossPlot")
	}
	line.LineStyle.Width = vg.Points(1.5)

	best := floats.MinIdx(history)
	marker, err := plotter.NewScatter(plotter.XYs{pts[best]})
	if err != nil {
		return nil, errors.Wrap(err, "report.LossPlot")
	}
	marker.GlyphStyle.Shape = draw.CircleGlyph{}
	marker.GlyphStyle.Radius = vg.Points(3)

	p.Add(line, marker)
	p.Legend.Add("loss", line)
	p.Legend.Add("best", marker)
	p.Legend.Top = true
	return p, nil
}

// WriteLossPlot renders the plot to w. format is one of the extensions
// understood by gonum/plot: png, svg, pdf, eps, jpg, tif.
func WriteLossPlot(w io.Writer, history []float64, format string) error {
	p, err := LossPlot(history)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, strings.ToLower(format))
	if err != nil {
		return errors.NewArgumentError("format", err.Error(), format)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "report.WriteLossPlot")
	}
	return nil
}

// SaveLossPlot writes the plot to path; the extension selects the format.
func SaveLossPlot(path string, history []float64) error {
	p, err := LossPlot(history)
	if err != nil {
		return err
	}
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return errors.Wrapf(err, "report.SaveLossPlot: %s", path)
	}
	return nil
}
