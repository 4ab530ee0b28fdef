package objective

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/control"
	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/sim"
)

// Func is an objective over a control sequence. The gradient has the shape
// of x. Implementations must not modify x.
type Func func(x *mat.Dense) (float64, *mat.Dense, error)

// Term is a weighted objective.
type Term struct {
	Name   string
	Weight float64
	Func   Func
}

// Sum returns the weighted sum of the terms' values and gradients.
func Sum(terms ...Term) Func {
	return func(x *mat.Dense) (float64, *mat.Dense, error) {
		r, c := x.Dims()
		total := mat.NewDense(r, c, nil)
		var value float64
		for i, t := range terms {
			if t.Weight == 0 {
				continue
			}
			v, g, err := t.Func(x)
			if err != nil {
				return 0, nil, fmt.Errorf("%s: %w", termName(t.Name, i), err)
			}
			if g == nil {
				return 0, nil, fmt.Errorf("%s: no gradient: %w", termName(t.Name, i), dynamo.ErrShape)
			}
			if gr, gc := g.Dims(); gr != r || gc != c {
				return 0, nil, fmt.Errorf("%s: gradient %d×%d for %d×%d input: %w", termName(t.Name, i), gr, gc, r, c, dynamo.ErrShape)
			}
			value += t.Weight * v
			total.Add(total, scaled(t.Weight, g))
		}
		return value, total, nil
	}
}

// Negate returns -f.
func Negate(f Func) Func {
	return func(x *mat.Dense) (float64, *mat.Dense, error) {
		v, g, err := f(x)
		if err != nil {
			return 0, nil, err
		}
		return -v, scaled(-1, g), nil
	}
}

// Penalty returns AmplitudePenalty as a Func.
func Penalty(cfg PenaltyConfig) Func {
	return func(x *mat.Dense) (float64, *mat.Dense, error) {
		return AmplitudePenalty(x, cfg)
	}
}

// ResultFunc is an objective over an evolution result with derivatives.
type ResultFunc func(res *sim.Result) (float64, *mat.Dense, error)

// ResultTerm is a weighted ResultFunc.
type ResultTerm struct {
	Name   string
	Weight float64
	Func   ResultFunc
}

// Fidelity binds GateFidelity to a target.
func Fidelity(target *mat.CDense, opts FidelityOptions) ResultFunc {
	return func(res *sim.Result) (float64, *mat.Dense, error) {
		return GateFidelity(target, res.Propagator, res.Jacobian, opts)
	}
}

// Robust binds Robustness to a block.
func Robust(block BlockSpec) ResultFunc {
	return func(res *sim.Result) (float64, *mat.Dense, error) {
		return Robustness(res.Propagator, res.Jacobian, block)
	}
}

// Propagation evolves sys once per evaluation, with derivatives, and returns
// the weighted sum of the terms applied to that result.
func Propagation(s *sim.Simulator, sys control.System, dt float64, terms ...ResultTerm) Func {
	return func(x *mat.Dense) (float64, *mat.Dense, error) {
		res, err := s.Evolve(context.Background(), sys, x, dt, true)
		if err != nil {
			return 0, nil, err
		}
		total := mat.NewDense(res.Steps, res.Channels, nil)
		var value float64
		for i, t := range terms {
			if t.Weight == 0 {
				continue
			}
			v, g, err := t.Func(res)
			if err != nil {
				return 0, nil, fmt.Errorf("%s: %w", termName(t.Name, i), err)
			}
			if g == nil {
				return 0, nil, fmt.Errorf("%s: no gradient: %w", termName(t.Name, i), dynamo.ErrShape)
			}
			if gr, gc := g.Dims(); gr != res.Steps || gc != res.Channels {
				return 0, nil, fmt.Errorf("%s: gradient %d×%d for %d×%d input: %w", termName(t.Name, i), gr, gc, res.Steps, res.Channels, dynamo.ErrShape)
			}
			value += t.Weight * v
			total.Add(total, scaled(t.Weight, g))
		}
		return value, total, nil
	}
}

func scaled(w float64, g *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Scale(w, g)
	return &out
}

func termName(name string, i int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("term %d", i)
}
