package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/analysis"
)

// PlotOptions sizes terminal charts. Zero fields use 80×10.
type PlotOptions struct {
	Width  int
	Height int
}

func (o PlotOptions) withDefaults() PlotOptions {
	if o.Width <= 0 {
		o.Width = 80
	}
	if o.Height <= 0 {
		o.Height = 10
	}
	return o
}

func (o PlotOptions) plot(data []float64, caption string) string {
	if len(data) == 0 {
		return Subtle.Render("(no data) " + caption)
	}
	if len(data) == 1 {
		data = []float64{data[0], data[0]}
	}
	return asciigraph.Plot(data,
		asciigraph.Height(o.Height),
		asciigraph.Width(o.Width),
		asciigraph.Caption(caption),
	)
}

// PulsePlot renders one chart per channel of seq.
func PulsePlot(seq *mat.Dense, dt float64, opts PlotOptions) string {
	opts = opts.withDefaults()
	rows, cols := seq.Dims()

	var s strings.Builder
	for k := 0; k < cols; k++ {
		caption := fmt.Sprintf("u%d over %d steps (T = %.4g)", k, rows, float64(rows)*dt)
		s.WriteString(opts.plot(mat.Col(nil, k, seq), caption))
		s.WriteString("\n\n")
	}
	return s.String()
}

// SpectrumPlot renders the power of each bin.
func SpectrumPlot(spec []analysis.SpectrumPoint, caption string, opts PlotOptions) string {
	opts = opts.withDefaults()
	power := make([]float64, len(spec))
	for i, p := range spec {
		power[i] = p.Power
	}
	return opts.plot(power, caption)
}

// ProfilePlot renders fidelity against perturbation strength.
func ProfilePlot(points []analysis.ProfilePoint, opts PlotOptions) string {
	opts = opts.withDefaults()
	fid := make([]float64, len(points))
	for i, p := range points {
		fid[i] = p.Fidelity
	}
	caption := "fidelity vs strength"
	if len(points) > 0 {
		caption = fmt.Sprintf("fidelity for strength %.3g .. %.3g", points[0].Strength, points[len(points)-1].Strength)
	}
	return opts.plot(fid, caption)
}
