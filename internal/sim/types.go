package sim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/integrators"
)

// Result of evolving a system under a control sequence.
type Result struct {
	// Propagator is L_N·…·L_1, step 1 applied first.
	Propagator *mat.CDense
	// Jacobian[n][k] is ∂Propagator/∂a[n,k]. Nil unless derivatives were requested.
	Jacobian [][]*mat.CDense

	Steps    int
	Channels int
	Dim      int
}

// Observer sees every local step propagator, in time order.
type Observer interface {
	OnStep(step int, local *mat.CDense)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(step int, local *mat.CDense)

func (f ObserverFunc) OnStep(step int, local *mat.CDense) { f(step, local) }

// Option configures a Simulator.
type Option func(*Simulator)

// WithWorkers runs the per-step exponentials on n goroutines.
func WithWorkers(n int) Option {
	return func(s *Simulator) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithObserver registers o to be called once per step.
func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

// WithIntegrator replaces the step exponentiator.
func WithIntegrator(integ integrators.Integrator) Option {
	return func(s *Simulator) { s.integrator = integ }
}
