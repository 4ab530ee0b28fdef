package linalg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MaxCondition is the largest condition estimate Solve accepts.
const MaxCondition = 1e12

// complexLU is an LU factorization of the real embedding
// [[Re a, -Im a], [Im a, Re a]] of a complex n×n matrix a.
type complexLU struct {
	n    int
	lu   mat.LU
	cond float64
}

func factorize(a *mat.CDense) (*complexLU, error) {
	n, _ := a.Dims()
	emb := mat.NewDense(2*n, 2*n, nil)
	sa := a.RawCMatrix()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := sa.Data[i*sa.Stride+j]
			emb.Set(i, j, real(v))
			emb.Set(i, j+n, -imag(v))
			emb.Set(i+n, j, imag(v))
			emb.Set(i+n, j+n, real(v))
		}
	}

	f := &complexLU{n: n}
	f.lu.Factorize(emb)
	f.cond = f.lu.Cond()
	if f.cond > MaxCondition {
		return f, fmt.Errorf("condition estimate %.3g: %w", f.cond, ErrIllConditioned)
	}
	return f, nil
}

// solve returns x with a·x = b for the factorized a.
func (f *complexLU) solve(b *mat.CDense) (*mat.CDense, error) {
	n := f.n
	_, bc := b.Dims()
	rhs := mat.NewDense(2*n, bc, nil)
	sb := b.RawCMatrix()
	for i := 0; i < n; i++ {
		for j := 0; j < bc; j++ {
			v := sb.Data[i*sb.Stride+j]
			rhs.Set(i, j, real(v))
			rhs.Set(i+n, j, imag(v))
		}
	}

	var sol mat.Dense
	if err := f.lu.SolveTo(&sol, false, rhs); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrIllConditioned)
	}

	x := mat.NewCDense(n, bc, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < bc; j++ {
			x.Set(i, j, complex(sol.At(i, j), sol.At(i+n, j)))
		}
	}
	return x, nil
}

// Solve returns x with a·x = b together with the 1-norm condition estimate of
// the factorization. The complex system is solved through its real embedding
// [[Re a, -Im a], [Im a, Re a]].
func Solve(a, b *mat.CDense) (*mat.CDense, float64, error) {
	n, m := a.Dims()
	if n != m {
		return nil, 0, ErrNonSquare
	}
	if br, _ := b.Dims(); br != n {
		return nil, 0, ErrDimensionMismatch
	}
	if !IsFinite(a) || !IsFinite(b) {
		return nil, 0, ErrNaNInf
	}

	f, err := factorize(a)
	if err != nil {
		return nil, f.cond, err
	}
	x, err := f.solve(b)
	return x, f.cond, err
}

// SolveBlockUpper solves [[q, r], [0, q]]·x = b, with q and r n×n and b
// 2n×k, from a single factorization of q:
//
//	x₂ = q⁻¹·b₂
//	x₁ = q⁻¹·(b₁ − r·x₂)
//
// The returned condition estimate is that of q.
func SolveBlockUpper(q, r, b *mat.CDense) (*mat.CDense, float64, error) {
	n, m := q.Dims()
	if n != m {
		return nil, 0, ErrNonSquare
	}
	if rr, rc := r.Dims(); rr != n || rc != n {
		return nil, 0, ErrDimensionMismatch
	}
	br, bc := b.Dims()
	if br != 2*n {
		return nil, 0, ErrDimensionMismatch
	}
	if !IsFinite(q) || !IsFinite(r) || !IsFinite(b) {
		return nil, 0, ErrNaNInf
	}

	f, err := factorize(q)
	if err != nil {
		return nil, f.cond, err
	}
	x2, err := f.solve(Block(b, n, 0, n, bc))
	if err != nil {
		return nil, f.cond, err
	}
	rhs := Block(b, 0, 0, n, bc)
	AddScaled(rhs, -1, Mul(r, x2))
	x1, err := f.solve(rhs)
	if err != nil {
		return nil, f.cond, err
	}

	x := mat.NewCDense(2*n, bc, nil)
	SetBlock(x, 0, 0, x1)
	SetBlock(x, n, 0, x2)
	return x, f.cond, nil
}

// blockUpperHalf returns n when a is 2n×2n of the form [[g, p], [0, g]]
// with exactly equal diagonal blocks, and 0 otherwise.
func blockUpperHalf(a *mat.CDense) int {
	rows, cols := a.Dims()
	if rows != cols || rows%2 != 0 {
		return 0
	}
	n := rows / 2
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if a.At(n+i, j) != 0 || a.At(i, j) != a.At(n+i, n+j) {
				return 0
			}
		}
	}
	return n
}
