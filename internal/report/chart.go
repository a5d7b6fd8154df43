// Package report renders experiment results as console text and charts.
package report

import (
	"fmt"
	"image/color"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/copyleftdev/cnvsim/internal/errors"
	"github.com/copyleftdev/cnvsim/internal/experiment"
	"github.com/copyleftdev/cnvsim/internal/simulation"
)

const (
	// ChartWidth and ChartHeight size saved charts.
	ChartWidth  = 6 * vg.Inch
	ChartHeight = 4 * vg.Inch

	barWidth = 40 * vg.Millimeter
)

var (
	neutralColor  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	selectedColor = color.RGBA{R: 0, G: 128, B: 0, A: 255}
)

// BarChart draws one bar per scenario with its empirical fixation
// probability. The first bar is grey and the rest green.
func BarChart(result *experiment.Result) (*plot.Plot, error) {
	if result == nil || len(result.Scenarios) == 0 {
		return nil, errors.New("result has no scenarios").WithOperation("BarChart").WithComponent("report")
	}

	p := plot.New()
	p.Title.Text = "Impact of Selection on CNV Maintenance"
	p.Y.Label.Text = "Probability of Fixation"
	p.Y.Min = 0

	values := result.Probabilities()
	for i, v := range values {
		bar, err := plotter.NewBarChart(plotter.Values{v}, barWidth)
		if err != nil {
			return nil, errors.Wrap(err, "building bar").WithOperation("BarChart").WithComponent("report")
		}
		bar.XMin = float64(i)
		bar.LineStyle.Width = 0
		bar.Color = selectedColor
		if i == 0 {
			bar.Color = neutralColor
		}
		p.Add(bar)
	}
	p.NominalX(result.Labels()...)

	return p, nil
}

// TrajectoryChart draws allele frequency against generation.
func TrajectoryChart(traj simulation.Trajectory, params simulation.Parameters) (*plot.Plot, error) {
	if len(traj) == 0 {
		return nil, errors.New("trajectory is empty").WithOperation("TrajectoryChart").WithComponent("report")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("CNV Trajectory (N=%d, s=%g)", params.PopulationSize, params.SelectionCoefficient)
	p.X.Label.Text = "Generations"
	p.Y.Label.Text = "Frequency"
	p.Y.Min = 0
	p.Y.Max = 1

	pts := make(plotter.XYs, len(traj))
	for i, f := range traj {
		pts[i].X = float64(i)
		pts[i].Y = f
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "building line").WithOperation("TrajectoryChart").WithComponent("report")
	}
	line.Color = selectedColor
	p.Add(line)

	return p, nil
}

// Save writes p to path; the image format follows the file extension
// (png, svg, pdf, ...).
func Save(p *plot.Plot, path string) error {
	if err := p.Save(ChartWidth, ChartHeight, path); err != nil {
		return errors.Wrapf(err, "saving chart to %s", path).WithComponent("report")
	}
	return nil
}

// WriteChart streams p to w in the given format.
func WriteChart(w io.Writer, p *plot.Plot, format string) error {
	wt, err := p.WriterTo(ChartWidth, ChartHeight, strings.ToLower(format))
	if err != nil {
		return errors.Wrap(err, "rendering chart").WithComponent("report")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing chart").WithComponent("report")
	}
	return nil
}

// SaveBarChart renders and saves the fixation probability chart.
func SaveBarChart(result *experiment.Result, path string) error {
	p, err := BarChart(result)
	if err != nil {
		return err
	}
	return Save(p, path)
}

// SaveTrajectoryChart renders and saves a single trajectory.
func SaveTrajectoryChart(traj simulation.Trajectory, params simulation.Parameters, path string) error {
	p, err := TrajectoryChart(traj, params)
	if err != nil {
		return err
	}
	return Save(p, path)
}

// FormatOf returns the image format implied by path's extension.
func FormatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
