package analysis

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/control"
	"github.com/san-kum/qpulse/internal/linalg"
	"github.com/san-kum/qpulse/internal/objective"
	"github.com/san-kum/qpulse/internal/sim"
)

// ProfilePoint is the fidelity of a pulse when the drift is shifted by
// Strength times the perturbation.
type ProfilePoint struct {
	Strength float64
	Fidelity float64
}

// Strengths returns points values evenly spaced over [-limit, limit]. A single
// point is 0.
func Strengths(limit float64, points int) []float64 {
	if points <= 1 {
		return []float64{0}
	}
	out := make([]float64, points)
	step := 2 * limit / float64(points-1)
	for i := range out {
		out[i] = -limit + float64(i)*step
	}
	return out
}

// RobustnessProfile evolves seq under drift + δ·perturbation for every
// strength δ, concurrently through ens, and returns the gate fidelity of
// each evolution against target.
func RobustnessProfile(
	ctx context.Context,
	ens *sim.Ensemble,
	sys *control.ControlSystem,
	perturbation, target *mat.CDense,
	opts objective.FidelityOptions,
	seq *mat.Dense,
	dt float64,
	strengths []float64,
) ([]ProfilePoint, error) {
	controls := make([]*mat.CDense, sys.Channels())
	for k := range controls {
		controls[k] = sys.Control(k)
	}

	systems := make([]control.System, len(strengths))
	for i, delta := range strengths {
		drift := linalg.Clone(sys.Drift())
		linalg.AddScaled(drift, complex(delta, 0), perturbation)
		shifted, err := control.NewControlSystem(drift, controls...)
		if err != nil {
			return nil, fmt.Errorf("analysis: strength %g: %w", delta, err)
		}
		systems[i] = shifted
	}

	results, err := ens.Run(ctx, systems, seq, dt)
	if err != nil {
		return nil, err
	}

	points := make([]ProfilePoint, len(strengths))
	for i, res := range results {
		f, _, err := objective.GateFidelity(target, res.Propagator, nil, opts)
		if err != nil {
			return nil, err
		}
		points[i] = ProfilePoint{Strength: strengths[i], Fidelity: f}
	}
	return points, nil
}
