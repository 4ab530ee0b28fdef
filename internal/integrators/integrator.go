package integrators

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/linalg"
)

// ErrStepLimit is returned when an adaptive scheme needs more sub-steps than
// allowed to cover one step.
var ErrStepLimit = errors.New("integrators: adaptive sub-step limit exceeded")

// Integrator returns the propagator of a constant generator g over dt.
type Integrator interface {
	Name() string
	Exp(g *mat.CDense, dt float64) (*mat.CDense, error)
}

// Pade exponentiates dt·g directly.
type Pade struct{}

func NewPade() *Pade { return &Pade{} }

func (Pade) Name() string { return "pade" }

func (Pade) Exp(g *mat.CDense, dt float64) (*mat.CDense, error) {
	if err := dynamo.CheckStep(dt); err != nil {
		return nil, err
	}
	return linalg.Expm(linalg.Scale(complex(dt, 0), g))
}

// ExpDerivative returns exp(dt·g) and the Fréchet derivative of the
// exponential at dt·g in direction dt·p.
func (Pade) ExpDerivative(g, p *mat.CDense, dt float64) (*mat.CDense, *mat.CDense, error) {
	if err := dynamo.CheckStep(dt); err != nil {
		return nil, nil, err
	}
	h := complex(dt, 0)
	return linalg.BlockExpDerivative(linalg.Scale(h, g), linalg.Scale(h, p))
}

type differentiator interface {
	ExpDerivative(g, p *mat.CDense, dt float64) (*mat.CDense, *mat.CDense, error)
}

// ExpDerivative returns the propagator of g over dt and its derivative with
// respect to a coefficient on p, read off the blocks of the propagator of
// [[g, p], [0, g]]. Integrators with their own ExpDerivative method are used
// directly.
func ExpDerivative(in Integrator, g, p *mat.CDense, dt float64) (*mat.CDense, *mat.CDense, error) {
	if d, ok := in.(differentiator); ok {
		return d.ExpDerivative(g, p, dt)
	}
	n, err := checkSquare(g)
	if err != nil {
		return nil, nil, err
	}
	if pr, pc := p.Dims(); pr != n || pc != n {
		return nil, nil, linalg.ErrDimensionMismatch
	}
	aug, err := in.Exp(linalg.BlockUpper(g, p, g), dt)
	if err != nil {
		return nil, nil, err
	}
	return linalg.Block(aug, 0, 0, n, n), linalg.Block(aug, 0, n, n, n), nil
}

// rhs is dU/dt = g·U.
func rhs(g, u *mat.CDense) *mat.CDense {
	return linalg.Mul(g, u)
}

// combine returns u + h·Σ coeffs[i]·ks[i], skipping zero coefficients.
func combine(u *mat.CDense, h float64, coeffs []float64, ks []*mat.CDense) *mat.CDense {
	out := linalg.Clone(u)
	for i, c := range coeffs {
		if c == 0 {
			continue
		}
		linalg.AddScaled(out, complex(h*c, 0), ks[i])
	}
	return out
}

func checkSquare(g *mat.CDense) (int, error) {
	n, m := g.Dims()
	if n != m {
		return 0, linalg.ErrNonSquare
	}
	if !linalg.IsFinite(g) {
		return 0, linalg.ErrNaNInf
	}
	return n, nil
}
