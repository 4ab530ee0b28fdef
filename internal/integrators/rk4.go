package integrators

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/linalg"
)

// RK4 integrates dU/dt = g·U from the identity with Substeps equal steps.
type RK4 struct {
	Substeps int
}

func NewRK4(substeps int) *RK4 {
	if substeps < 1 {
		substeps = 1
	}
	return &RK4{Substeps: substeps}
}

func (r *RK4) Name() string { return "rk4" }

func (r *RK4) Exp(g *mat.CDense, dt float64) (*mat.CDense, error) {
	if err := dynamo.CheckStep(dt); err != nil {
		return nil, err
	}
	n, err := checkSquare(g)
	if err != nil {
		return nil, err
	}
	steps := r.Substeps
	if steps < 1 {
		steps = 1
	}
	h := dt / float64(steps)

	u := linalg.Identity(n)
	for i := 0; i < steps; i++ {
		u = r.step(g, u, h)
	}
	if !linalg.IsFinite(u) {
		return nil, linalg.ErrNaNInf
	}
	return u, nil
}

func (r *RK4) step(g, u *mat.CDense, h float64) *mat.CDense {
	k1 := rhs(g, u)
	k2 := rhs(g, combine(u, h, []float64{0.5}, []*mat.CDense{k1}))
	k3 := rhs(g, combine(u, h, []float64{0.5}, []*mat.CDense{k2}))
	k4 := rhs(g, combine(u, h, []float64{1}, []*mat.CDense{k3}))

	return combine(u, h/6.0, []float64{1, 2, 2, 1}, []*mat.CDense{k1, k2, k3, k4})
}
