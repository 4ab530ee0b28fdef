package experiment

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/config"
	"github.com/san-kum/qpulse/internal/control"
	"github.com/san-kum/qpulse/internal/linalg"
	"github.com/san-kum/qpulse/internal/objective"
	"github.com/san-kum/qpulse/internal/sim"
)

// Problem is a configuration resolved into systems, a simulator and the
// objective to minimize:
//
//	-w_F·fidelity + w_R·robustness + w_P·penalty
type Problem struct {
	Config     *config.Config
	System     *control.ControlSystem
	Decoupling *control.DecouplingSystem
	Target     *mat.CDense
	Simulator  *sim.Simulator
	Objective  objective.Func

	fidelity objective.FidelityOptions
	block    objective.BlockSpec
	penalty  objective.PenaltyConfig
}

// Build resolves cfg. The configuration is validated first.
func Build(cfg *config.Config, reg *Registry, opts ...sim.Option) (*Problem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = NewRegistry()
	}

	drift, err := reg.Operator(cfg.Drift, cfg.Dim)
	if err != nil {
		return nil, fmt.Errorf("drift: %w", err)
	}
	controls := make([]*mat.CDense, len(cfg.Controls))
	for k, op := range cfg.Controls {
		if controls[k], err = reg.Operator(op, cfg.Dim); err != nil {
			return nil, fmt.Errorf("controls[%d]: %w", k, err)
		}
	}
	target, err := reg.Operator(cfg.Target, cfg.TargetDimension())
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}

	sys, err := control.NewControlSystem(drift, controls...)
	if err != nil {
		return nil, err
	}

	p := &Problem{
		Config: cfg,
		System: sys,
		Target: target,
		block: objective.BlockSpec{
			Row:  cfg.Robustness.Row,
			Col:  cfg.Robustness.Col,
			Rows: cfg.Robustness.Rows,
			Cols: cfg.Robustness.Cols,
		},
		penalty: objective.PenaltyConfig{
			Lower:         cfg.Penalty.Lower,
			Upper:         cfg.Penalty.Upper,
			Tolerance:     cfg.Penalty.Tolerance,
			Rate:          cfg.Penalty.Rate,
			RateTolerance: cfg.Penalty.RateTolerance,
		},
	}

	if p.block.IsZero() {
		p.block = objective.DefaultBlock(cfg.Dim)
	}

	phase, err := objective.ParsePhaseMode(cfg.Fidelity.Phase)
	if err != nil {
		return nil, fmt.Errorf("fidelity: %w", err)
	}
	p.fidelity = objective.FidelityOptions{Phase: phase, Unnormalized: cfg.Fidelity.Unnormalized}

	if cfg.Robust() {
		pert, err := reg.Operator(cfg.Perturbation, cfg.Dim)
		if err != nil {
			return nil, fmt.Errorf("perturbation: %w", err)
		}
		if p.Decoupling, err = sys.DecouplingSystem(pert); err != nil {
			return nil, err
		}
	}

	integ, err := reg.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	if cfg.Workers > 0 {
		opts = append([]sim.Option{sim.WithWorkers(cfg.Workers)}, opts...)
	}
	p.Simulator = sim.New(integ, opts...)

	terms := []objective.ResultTerm{
		{Name: "fidelity", Weight: -cfg.Fidelity.Weight, Func: objective.Fidelity(target, p.fidelity)},
	}
	if p.Decoupling != nil {
		terms = append(terms, objective.ResultTerm{Name: "robustness", Weight: cfg.Robustness.Weight, Func: objective.Robust(p.block)})
	}
	p.Objective = objective.Sum(
		objective.Term{Name: "propagation", Weight: 1, Func: objective.Propagation(p.Simulator, p.Evolved(), cfg.Dt, terms...)},
		objective.Term{Name: "penalty", Weight: cfg.Penalty.Weight, Func: objective.Penalty(p.penalty)},
	)

	return p, nil
}

// Evolved is the system propagated during optimization: the decoupling
// system for robust problems, the control system otherwise.
func (p *Problem) Evolved() control.System {
	if p.Decoupling != nil {
		return p.Decoupling
	}
	return p.System
}

// Shape is the rows×cols shape of the control sequence.
func (p *Problem) Shape() (int, int) {
	return p.Config.Steps, p.System.Channels()
}

// Diagnostics breaks an objective value into its terms.
type Diagnostics struct {
	Value      float64
	Fidelity   float64
	Robustness float64
	Penalty    float64
	// Unitarity is ‖U†U − I‖_F of the nominal propagator.
	Unitarity float64
}

// Metrics returns the diagnostics keyed by name.
func (d *Diagnostics) Metrics() map[string]float64 {
	return map[string]float64{
		"fidelity":   d.Fidelity,
		"robustness": d.Robustness,
		"penalty":    d.Penalty,
		"unitarity":  d.Unitarity,
	}
}

// Diagnose evaluates each term of the objective at seq without derivatives.
func (p *Problem) Diagnose(ctx context.Context, seq *mat.Dense) (*Diagnostics, error) {
	res, err := p.Simulator.Evolve(ctx, p.Evolved(), seq, p.Config.Dt, false)
	if err != nil {
		return nil, err
	}

	d := &Diagnostics{}
	if d.Fidelity, _, err = objective.GateFidelity(p.Target, res.Propagator, nil, p.fidelity); err != nil {
		return nil, err
	}
	if p.Decoupling != nil {
		if d.Robustness, _, err = objective.Robustness(res.Propagator, nil, p.block); err != nil {
			return nil, err
		}
	}
	if d.Penalty, _, err = objective.AmplitudePenalty(seq, p.penalty); err != nil {
		return nil, err
	}

	dim := p.System.Dim()
	d.Unitarity = sim.Unitarity(linalg.Block(res.Propagator, 0, 0, dim, dim))

	cfg := p.Config
	d.Value = -cfg.Fidelity.Weight*d.Fidelity + cfg.Penalty.Weight*d.Penalty
	if p.Decoupling != nil {
		d.Value += cfg.Robustness.Weight * d.Robustness
	}
	return d, nil
}

// FidelityOptions returns the fidelity convention of the problem.
func (p *Problem) FidelityOptions() objective.FidelityOptions { return p.fidelity }
