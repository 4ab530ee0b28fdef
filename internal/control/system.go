package control

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/linalg"
)

// System is a generator that depends linearly on a vector of control
// amplitudes.
type System interface {
	// Dim is the size of the composed generator.
	Dim() int
	// Channels is the number of control amplitudes.
	Channels() int
	// Compose returns the generator for one step's amplitudes.
	Compose(amps []float64) (*mat.CDense, error)
	// Control returns the direction of channel k in the composed space,
	// ∂Compose/∂amps[k].
	Control(k int) *mat.CDense
}

// ControlSystem is a drift generator plus weighted control generators.
// It is immutable after construction.
type ControlSystem struct {
	drift    *mat.CDense
	controls []*mat.CDense
	dim      int
}

// NewControlSystem validates and copies the drift and control generators.
func NewControlSystem(drift *mat.CDense, controls ...*mat.CDense) (*ControlSystem, error) {
	if len(controls) == 0 {
		return nil, dynamo.ErrNoControls
	}
	if drift == nil {
		return nil, fmt.Errorf("drift: %w", dynamo.ErrShape)
	}
	n, m := drift.Dims()
	if n != m {
		return nil, fmt.Errorf("drift is %d×%d: %w", n, m, dynamo.ErrShape)
	}
	cs := &ControlSystem{
		drift:    linalg.Clone(drift),
		controls: make([]*mat.CDense, len(controls)),
		dim:      n,
	}
	for k, c := range controls {
		if c == nil {
			return nil, fmt.Errorf("control %d: %w", k, dynamo.ErrShape)
		}
		r, q := c.Dims()
		if r != n || q != n {
			return nil, fmt.Errorf("control %d is %d×%d, drift is %d×%d: %w", k, r, q, n, n, dynamo.ErrShape)
		}
		cs.controls[k] = linalg.Clone(c)
	}
	return cs, nil
}

func (s *ControlSystem) Dim() int      { return s.dim }
func (s *ControlSystem) Channels() int { return len(s.controls) }

// Drift returns the drift generator. Callers must not modify it.
func (s *ControlSystem) Drift() *mat.CDense { return s.drift }

// Control returns control generator k. Callers must not modify it.
func (s *ControlSystem) Control(k int) *mat.CDense { return s.controls[k] }

// Compose returns drift + Σ amps[k]·controls[k] as a new matrix.
func (s *ControlSystem) Compose(amps []float64) (*mat.CDense, error) {
	if len(amps) != len(s.controls) {
		return nil, fmt.Errorf("%d amplitudes for %d channels: %w", len(amps), len(s.controls), dynamo.ErrShape)
	}
	g := linalg.Clone(s.drift)
	for k, a := range amps {
		if a == 0 {
			continue
		}
		linalg.AddScaled(g, complex(a, 0), s.controls[k])
	}
	return g, nil
}

// DecouplingSystem returns the augmented system of s and a perturbation
// generator of the same dimension.
func (s *ControlSystem) DecouplingSystem(perturbation *mat.CDense) (*DecouplingSystem, error) {
	if perturbation == nil {
		return nil, fmt.Errorf("perturbation: %w", dynamo.ErrShape)
	}
	r, c := perturbation.Dims()
	if r != s.dim || c != s.dim {
		return nil, fmt.Errorf("perturbation is %d×%d, system is %d×%d: %w", r, c, s.dim, s.dim, dynamo.ErrShape)
	}
	ds := &DecouplingSystem{
		base:         s,
		perturbation: linalg.Clone(perturbation),
		controls:     make([]*mat.CDense, len(s.controls)),
	}
	for k, ck := range s.controls {
		ds.controls[k] = linalg.BlockDiag(ck, ck)
	}
	return ds, nil
}

// DecouplingSystem pairs a control system with a perturbation generator P.
// Its composed generator is [[G, P], [0, G]] of size 2d.
type DecouplingSystem struct {
	base         *ControlSystem
	perturbation *mat.CDense
	controls     []*mat.CDense
}

func (d *DecouplingSystem) Dim() int      { return 2 * d.base.dim }
func (d *DecouplingSystem) Channels() int { return d.base.Channels() }

// Base returns the underlying control system.
func (d *DecouplingSystem) Base() *ControlSystem { return d.base }

// Perturbation returns P. Callers must not modify it.
func (d *DecouplingSystem) Perturbation() *mat.CDense { return d.perturbation }

// Control returns diag(C_k, C_k).
func (d *DecouplingSystem) Control(k int) *mat.CDense { return d.controls[k] }

// Compose is ComposeAugmented.
func (d *DecouplingSystem) Compose(amps []float64) (*mat.CDense, error) {
	return d.ComposeAugmented(amps)
}

// ComposeAugmented builds [[G, P], [0, G]] with G = base.Compose(amps).
func (d *DecouplingSystem) ComposeAugmented(amps []float64) (*mat.CDense, error) {
	g, err := d.base.Compose(amps)
	if err != nil {
		return nil, err
	}
	return linalg.BlockUpper(g, d.perturbation, g), nil
}
