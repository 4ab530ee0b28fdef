package linalg

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxSquarings bounds the scaling exponent of Expm.
const MaxSquarings = 64

// Padé [m/m] coefficients and the 1-norm thresholds below which degree m
// reaches double precision (Higham 2005).
var (
	pade3  = []float64{120, 60, 12, 1}
	pade5  = []float64{30240, 15120, 3360, 420, 30, 1}
	pade7  = []float64{17297280, 8648640, 1995840, 277200, 25200, 1512, 56, 1}
	pade9  = []float64{17643225600, 8821612800, 2075673600, 302702400, 30270240, 2162160, 110880, 3960, 90, 1}
	pade13 = []float64{
		64764752532480000, 32382376266240000, 7771770303897600, 1187353796428800,
		129060195264000, 10559470521600, 670442572800, 33522128640,
		1323241920, 40840800, 960960, 16380, 182, 1,
	}

	theta3  = 1.495585217958292e-2
	theta5  = 2.539398330063230e-1
	theta7  = 9.504178996162932e-1
	theta9  = 2.097847961257068e0
	theta13 = 5.371920351148152e0
)

// Expm returns the matrix exponential of a using scaling and squaring with a
// Padé approximant whose degree is chosen from the 1-norm of a. When a has
// the form [[g, p], [0, g]] the Padé denominator keeps that form and is
// solved with SolveBlockUpper.
func Expm(a *mat.CDense) (*mat.CDense, error) {
	return expm(a, blockUpperHalf(a))
}

// expm is Expm with the denominator solved blockwise around row and column
// half when half > 0, and densely otherwise.
func expm(a *mat.CDense, half int) (*mat.CDense, error) {
	n, m := a.Dims()
	if n != m {
		return nil, ErrNonSquare
	}
	if !IsFinite(a) {
		return nil, ErrNaNInf
	}

	norm := Norm1(a)
	if norm == 0 {
		return Identity(n), nil
	}

	var (
		u, v *mat.CDense
		s    int
	)
	switch {
	case norm <= theta3:
		u, v = padeLow(a, pade3)
	case norm <= theta5:
		u, v = padeLow(a, pade5)
	case norm <= theta7:
		u, v = padeLow(a, pade7)
	case norm <= theta9:
		u, v = padeLow(a, pade9)
	default:
		s = int(math.Max(0, math.Ceil(math.Log2(norm/theta13))))
		if s > MaxSquarings {
			return nil, fmt.Errorf("1-norm %.3g: %w", norm, ErrTooLarge)
		}
		scaled := a
		if s > 0 {
			scaled = Scale(complex(math.Ldexp(1, -s), 0), a)
		}
		u, v = pade13Terms(scaled)
	}

	// r = (v-u)^-1 (v+u)
	q := Clone(v)
	AddScaled(q, -1, u)
	p := Clone(v)
	AddScaled(p, 1, u)
	var (
		r   *mat.CDense
		err error
	)
	if half > 0 {
		r, _, err = SolveBlockUpper(Block(q, 0, 0, half, half), Block(q, 0, half, half, half), p)
	} else {
		r, _, err = Solve(q, p)
	}
	if err != nil {
		return nil, fmt.Errorf("pade denominator: %w", err)
	}
	for i := 0; i < s; i++ {
		r = Mul(r, r)
	}
	if !IsFinite(r) {
		return nil, ErrNaNInf
	}
	return r, nil
}

// padeLow evaluates the odd (u) and even (v) parts of the Padé numerator for
// degrees 3 through 9.
func padeLow(a *mat.CDense, b []float64) (u, v *mat.CDense) {
	n, _ := a.Dims()
	a2 := Mul(a, a)
	odd := Scale(complex(b[1], 0), Identity(n))
	v = Scale(complex(b[0], 0), Identity(n))
	pow := Identity(n)
	for k := 2; k < len(b); k += 2 {
		pow = Mul(pow, a2)
		AddScaled(v, complex(b[k], 0), pow)
		if k+1 < len(b) {
			AddScaled(odd, complex(b[k+1], 0), pow)
		}
	}
	return Mul(a, odd), v
}

func pade13Terms(a *mat.CDense) (u, v *mat.CDense) {
	b := pade13
	n, _ := a.Dims()
	id := Identity(n)
	a2 := Mul(a, a)
	a4 := Mul(a2, a2)
	a6 := Mul(a4, a2)

	inner := Scale(complex(b[13], 0), a6)
	AddScaled(inner, complex(b[11], 0), a4)
	AddScaled(inner, complex(b[9], 0), a2)
	odd := Mul(a6, inner)
	AddScaled(odd, complex(b[7], 0), a6)
	AddScaled(odd, complex(b[5], 0), a4)
	AddScaled(odd, complex(b[3], 0), a2)
	AddScaled(odd, complex(b[1], 0), id)
	u = Mul(a, odd)

	inner = Scale(complex(b[12], 0), a6)
	AddScaled(inner, complex(b[10], 0), a4)
	AddScaled(inner, complex(b[8], 0), a2)
	v = Mul(a6, inner)
	AddScaled(v, complex(b[6], 0), a6)
	AddScaled(v, complex(b[4], 0), a4)
	AddScaled(v, complex(b[2], 0), a2)
	AddScaled(v, complex(b[0], 0), id)
	return u, v
}

// BlockExpDerivative returns exp(g) and the Fréchet derivative of the
// exponential at g in direction p, read off the blocks of
// exp([[g, p], [0, g]]) = [[exp(g), L(g, p)], [0, exp(g)]].
// The Padé integrator computes its step derivatives through it.
func BlockExpDerivative(g, p *mat.CDense) (*mat.CDense, *mat.CDense, error) {
	n, m := g.Dims()
	if n != m {
		return nil, nil, ErrNonSquare
	}
	pr, pc := p.Dims()
	if pr != n || pc != n {
		return nil, nil, ErrDimensionMismatch
	}
	e, err := Expm(BlockUpper(g, p, g))
	if err != nil {
		return nil, nil, err
	}
	return Block(e, 0, 0, n, n), Block(e, 0, n, n, n), nil
}
