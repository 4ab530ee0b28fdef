package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/control"
)

// Ensemble evolves one control sequence under many systems concurrently,
// for example a family of perturbed drifts.
type Ensemble struct {
	base    *Simulator
	workers int
}

func NewEnsemble(s *Simulator, workers int) *Ensemble {
	if workers < 1 {
		workers = 1
	}
	return &Ensemble{base: s, workers: workers}
}

// Run returns one propagator-only result per system, in input order. The
// first failure cancels the remaining evolutions. Observers of the base
// simulator are not called.
func (e *Ensemble) Run(ctx context.Context, systems []control.System, seq *mat.Dense, dt float64) ([]*Result, error) {
	plain := New(e.base.integrator)
	results := make([]*Result, len(systems))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range systems {
		idx := i
		g.Go(func() error {
			res, err := plain.Evolve(gctx, systems[idx], seq, dt, false)
			if err != nil {
				return err
			}
			results[idx] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
