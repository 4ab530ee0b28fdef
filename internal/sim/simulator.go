package sim

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/control"
	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/integrators"
	"github.com/san-kum/qpulse/internal/linalg"
)

// Simulator evolves control systems under piecewise constant control
// sequences. It holds no per-evaluation state and is safe for concurrent use.
type Simulator struct {
	integrator integrators.Integrator
	workers    int
	observers  []Observer
}

// New returns a simulator using integ for step exponentials. A nil integ
// selects the Padé exponential.
func New(integ integrators.Integrator, opts ...Option) *Simulator {
	if integ == nil {
		integ = integrators.NewPade()
	}
	s := &Simulator{
		integrator: integ,
		workers:    1,
		observers:  make([]Observer, 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Integrator() integrators.Integrator { return s.integrator }
func (s *Simulator) Workers() int                       { return s.workers }

// stepData holds the local propagator of one step and, when requested, its
// derivative with respect to each channel.
type stepData struct {
	local  *mat.CDense
	derivs []*mat.CDense
	err    error
}

// Evolve computes the total propagator of sys under seq with step duration
// dt and, when wantDerivative is set, its derivative with respect to every
// amplitude. The sequence is not modified.
func (s *Simulator) Evolve(ctx context.Context, sys control.System, seq *mat.Dense, dt float64, wantDerivative bool) (*Result, error) {
	if err := dynamo.CheckStep(dt); err != nil {
		return nil, err
	}
	n, err := dynamo.CheckSequence(seq, sys.Channels())
	if err != nil {
		return nil, err
	}
	m := sys.Channels()

	steps := make([]stepData, n)
	dynamo.ParallelFor(n, s.workers, func(start, end int) {
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				steps[i].err = ctx.Err()
				return
			}
			steps[i] = s.localStep(sys, seq.RawRowView(i), i, dt, wantDerivative)
		}
	})

	for i := range steps {
		if steps[i].err != nil {
			return nil, steps[i].err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i := range steps {
		for _, o := range s.observers {
			o.OnStep(i, steps[i].local)
		}
	}

	// prefix[i] = L_i·…·L_0
	prefix := make([]*mat.CDense, n)
	prefix[0] = steps[0].local
	for i := 1; i < n; i++ {
		prefix[i] = linalg.Mul(steps[i].local, prefix[i-1])
	}

	result := &Result{
		Propagator: prefix[n-1],
		Steps:      n,
		Channels:   m,
		Dim:        sys.Dim(),
	}
	if !wantDerivative {
		return result, nil
	}

	// suffix[i] = L_{n-1}·…·L_i
	suffix := make([]*mat.CDense, n)
	suffix[n-1] = steps[n-1].local
	for i := n - 2; i >= 0; i-- {
		suffix[i] = linalg.Mul(suffix[i+1], steps[i].local)
	}

	result.Jacobian = make([][]*mat.CDense, n)
	dynamo.ParallelFor(n, s.workers, func(start, end int) {
		for i := start; i < end; i++ {
			var before, after *mat.CDense
			if i > 0 {
				before = prefix[i-1]
			}
			if i < n-1 {
				after = suffix[i+1]
			}
			row := make([]*mat.CDense, m)
			for k := 0; k < m; k++ {
				row[k] = linalg.Mul3(after, steps[i].derivs[k], before)
			}
			result.Jacobian[i] = row
		}
	})

	return result, nil
}

// localStep computes L = exp(dt·G) and, per channel k, ∂L/∂a_k from the
// upper right block of the propagator of [[G, C_k], [0, G]]. With
// derivatives, L is the diagonal block of the first augmented propagator.
func (s *Simulator) localStep(sys control.System, amps []float64, step int, dt float64, wantDerivative bool) stepData {
	g, err := sys.Compose(amps)
	if err != nil {
		return stepData{err: err}
	}
	if !wantDerivative {
		local, err := s.integrator.Exp(g, dt)
		if err != nil {
			return stepData{err: &dynamo.EvalError{Step: step, Channel: -1, Wrapped: err}}
		}
		return stepData{local: local}
	}

	var local *mat.CDense
	derivs := make([]*mat.CDense, sys.Channels())
	for k := range derivs {
		exp, deriv, err := integrators.ExpDerivative(s.integrator, g, sys.Control(k), dt)
		if err != nil {
			return stepData{err: &dynamo.EvalError{Step: step, Channel: k, Wrapped: err}}
		}
		if k == 0 {
			local = exp
		}
		derivs[k] = deriv
	}
	return stepData{local: local, derivs: derivs}
}

// Unitarity returns ‖u†u − I‖_F.
func Unitarity(u *mat.CDense) float64 {
	r, c := u.Dims()
	if r != c {
		panic(fmt.Sprintf("sim: unitarity of non-square %d×%d matrix", r, c))
	}
	return linalg.FrobeniusDist(linalg.Mul(linalg.Adjoint(u), u), linalg.Identity(r))
}
