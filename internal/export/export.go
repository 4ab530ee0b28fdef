// Package export writes pulse and analysis figures as image files.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/qpulse/internal/analysis"
)

// Size of saved figures.
const (
	Width  = 8 * vg.Inch
	Height = 5 * vg.Inch
)

var formats = map[string]bool{
	".png": true, ".svg": true, ".pdf": true, ".eps": true, ".jpg": true, ".jpeg": true, ".tif": true, ".tiff": true,
}

// Supported reports whether path has an extension Save can write.
func Supported(path string) bool {
	return formats[strings.ToLower(filepath.Ext(path))]
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)
	p.X.Label.TextStyle.Font.Size = vg.Points(12)
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)
	p.X.Padding = vg.Points(8)
	p.Y.Padding = vg.Points(8)
	p.Add(plotter.NewGrid())
}

// PulsePlot draws every channel of seq as a piecewise constant line.
func PulsePlot(seq *mat.Dense, dt float64, title string) (*plot.Plot, error) {
	rows, cols := seq.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("export: empty pulse")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "time"
	p.Y.Label.Text = "amplitude"
	stylePlot(p)

	for k := 0; k < cols; k++ {
		// one extra point closes the last step
		pts := make(plotter.XYs, rows+1)
		for i := 0; i < rows; i++ {
			pts[i].X = float64(i) * dt
			pts[i].Y = seq.At(i, k)
		}
		pts[rows].X = float64(rows) * dt
		pts[rows].Y = seq.At(rows-1, k)

		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.StepStyle = plotter.PostStep
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(k)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("u%d", k), line)
	}
	p.Legend.Top = true
	return p, nil
}

// SpectrumPlot draws power against frequency.
func SpectrumPlot(spec []analysis.SpectrumPoint, title string) (*plot.Plot, error) {
	pts := make(plotter.XYs, len(spec))
	for i, s := range spec {
		pts[i].X = s.Frequency
		pts[i].Y = s.Power
	}
	return linePlot(pts, title, "frequency", "power")
}

// ProfilePlot draws fidelity against perturbation strength.
func ProfilePlot(points []analysis.ProfilePoint, title string) (*plot.Plot, error) {
	pts := make(plotter.XYs, len(points))
	for i, s := range points {
		pts[i].X = s.Strength
		pts[i].Y = s.Fidelity
	}
	return linePlot(pts, title, "strength", "fidelity")
}

func linePlot(pts plotter.XYs, title, xlabel, ylabel string) (*plot.Plot, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("export: no points")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	stylePlot(p)

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(1.5)
	line.LineStyle.Color = plotutil.Color(0)
	points.Shape = plotutil.Shape(0)
	points.Color = plotutil.Color(0)
	p.Add(line, points)
	return p, nil
}

// Save writes p to path in the format named by its extension, creating the
// directory if needed.
func Save(p *plot.Plot, path string) error {
	if !Supported(path) {
		return fmt.Errorf("export: unsupported format %q", filepath.Ext(path))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return p.Save(Width, Height, path)
}
