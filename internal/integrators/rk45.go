package integrators

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/linalg"
)

// Dormand-Prince coefficients (RK45)
var (
	dpA = [][]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
	}

	dpC = []float64{35.0 / 384.0, 0, 500.0 / 1113.0, 125.0 / 192.0, -2187.0 / 6784.0, 11.0 / 84.0}

	dpE = []float64{
		35.0/384.0 - 5179.0/57600.0,
		0,
		500.0/1113.0 - 7571.0/16695.0,
		125.0/192.0 - 393.0/640.0,
		-2187.0/6784.0 + 92097.0/339200.0,
		11.0/84.0 - 187.0/2100.0,
		-1.0 / 40.0,
	}
)

// RK45 integrates dU/dt = g·U from the identity with adaptive Dormand-Prince
// sub-steps until the local error estimate is below Tol.
type RK45 struct {
	Tol      float64
	MaxSteps int

	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45(tol float64) *RK45 {
	if tol <= 0 {
		tol = 1e-10
	}
	return &RK45{
		Tol:      tol,
		MaxSteps: 100000,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Name() string { return "rk45" }

func (r *RK45) Exp(g *mat.CDense, dt float64) (*mat.CDense, error) {
	if err := dynamo.CheckStep(dt); err != nil {
		return nil, err
	}
	n, err := checkSquare(g)
	if err != nil {
		return nil, err
	}

	u := linalg.Identity(n)
	h := dt
	if norm := linalg.Norm1(g); norm > 0 {
		h = math.Min(dt, 0.5/norm)
	}

	t := 0.0
	for steps := 0; dt-t > 1e-14*dt; steps++ {
		if steps >= r.MaxSteps {
			return nil, ErrStepLimit
		}
		if t+h > dt {
			h = dt - t
		}
		next, hNext, accepted := r.StepAdaptive(g, u, h)
		if accepted {
			u = next
			t += h
		}
		h = hNext
	}
	if !linalg.IsFinite(u) {
		return nil, linalg.ErrNaNInf
	}
	return u, nil
}

// StepAdaptive attempts one sub-step of size h and returns the new state, the
// proposed next sub-step and whether the error estimate accepted this one.
func (r *RK45) StepAdaptive(g, u *mat.CDense, h float64) (*mat.CDense, float64, bool) {
	ks := make([]*mat.CDense, 0, 7)
	ks = append(ks, rhs(g, u))
	for stage := 1; stage < 6; stage++ {
		ks = append(ks, rhs(g, combine(u, h, dpA[stage], ks)))
	}
	next := combine(u, h, dpC, ks)
	ks = append(ks, rhs(g, next))

	ur, uc := u.Dims()
	errEst := combine(mat.NewCDense(ur, uc, nil), h, dpE, ks)

	errMax := 0.0
	for i := 0; i < ur; i++ {
		for j := 0; j < uc; j++ {
			scale := cmplx.Abs(u.At(i, j)) + cmplx.Abs(complex(h, 0)*ks[0].At(i, j)) + 1e-10
			errMax = math.Max(errMax, cmplx.Abs(errEst.At(i, j))/scale)
		}
	}

	errRatio := errMax / r.Tol

	var hNew float64
	switch {
	case errRatio > 1:
		hNew = h * math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
	case errRatio > 0:
		hNew = h * math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
	default:
		hNew = h * r.maxScale
	}

	return next, hNew, errRatio <= 1
}
