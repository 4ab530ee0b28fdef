package linalg

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/cblas128"
	"gonum.org/v1/gonum/mat"
)

// Zeros returns an n×n zero matrix.
func Zeros(n int) *mat.CDense {
	return mat.NewCDense(n, n, nil)
}

// Identity returns the n×n identity.
func Identity(n int) *mat.CDense {
	m := Zeros(n)
	raw := m.RawCMatrix()
	for i := 0; i < n; i++ {
		raw.Data[i*raw.Stride+i] = 1
	}
	return m
}

// FromRows builds a matrix from row slices. All rows must share a length.
func FromRows(rows [][]complex128) *mat.CDense {
	r := len(rows)
	if r == 0 {
		panic(ErrDimensionMismatch)
	}
	c := len(rows[0])
	data := make([]complex128, 0, r*c)
	for _, row := range rows {
		if len(row) != c {
			panic(ErrDimensionMismatch)
		}
		data = append(data, row...)
	}
	return mat.NewCDense(r, c, data)
}

// Clone returns a deep copy of a.
func Clone(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	raw := a.RawCMatrix()
	data := make([]complex128, r*c)
	for i := 0; i < r; i++ {
		copy(data[i*c:(i+1)*c], raw.Data[i*raw.Stride:i*raw.Stride+c])
	}
	return mat.NewCDense(r, c, data)
}

// Mul returns a·b.
func Mul(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		panic(ErrDimensionMismatch)
	}
	dst := mat.NewCDense(ar, bc, nil)
	cblas128.Gemm(blas.NoTrans, blas.NoTrans, 1, a.RawCMatrix(), b.RawCMatrix(), 0, dst.RawCMatrix())
	return dst
}

// Mul3 returns a·b·c, skipping nil factors. At least one factor must be set.
func Mul3(a, b, c *mat.CDense) *mat.CDense {
	var out *mat.CDense
	for _, f := range []*mat.CDense{a, b, c} {
		if f == nil {
			continue
		}
		if out == nil {
			out = f
			continue
		}
		out = Mul(out, f)
	}
	if out == nil {
		panic(ErrDimensionMismatch)
	}
	return out
}

// Add returns a+b.
func Add(a, b *mat.CDense) *mat.CDense {
	dst := Clone(a)
	AddScaled(dst, 1, b)
	return dst
}

// AddScaled sets dst = dst + alpha·a in place.
func AddScaled(dst *mat.CDense, alpha complex128, a *mat.CDense) {
	dr, dc := dst.Dims()
	ar, ac := a.Dims()
	if dr != ar || dc != ac {
		panic(ErrDimensionMismatch)
	}
	d := dst.RawCMatrix()
	s := a.RawCMatrix()
	for i := 0; i < dr; i++ {
		drow := d.Data[i*d.Stride : i*d.Stride+dc]
		srow := s.Data[i*s.Stride : i*s.Stride+dc]
		for j := range drow {
			drow[j] += alpha * srow[j]
		}
	}
}

// Scale returns alpha·a.
func Scale(alpha complex128, a *mat.CDense) *mat.CDense {
	dst := Clone(a)
	raw := dst.RawCMatrix()
	for i := range raw.Data {
		raw.Data[i] *= alpha
	}
	return dst
}

// Adjoint returns the conjugate transpose of a.
func Adjoint(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	dst := mat.NewCDense(c, r, nil)
	s := a.RawCMatrix()
	d := dst.RawCMatrix()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			d.Data[j*d.Stride+i] = cmplx.Conj(s.Data[i*s.Stride+j])
		}
	}
	return dst
}

// Trace returns the sum of the diagonal of a square matrix.
func Trace(a *mat.CDense) complex128 {
	r, c := a.Dims()
	if r != c {
		panic(ErrNonSquare)
	}
	raw := a.RawCMatrix()
	var tr complex128
	for i := 0; i < r; i++ {
		tr += raw.Data[i*raw.Stride+i]
	}
	return tr
}

// TraceProduct returns Tr(a†·b) without forming the product.
func TraceProduct(a, b *mat.CDense) complex128 {
	r, c := a.Dims()
	return TraceProductBlock(a, b, 0, 0, r, c)
}

// TraceProductBlock returns Tr(a†·B) where B is the r×c block of b whose top
// left corner is (r0, c0). a must be r×c.
func TraceProductBlock(a, b *mat.CDense, r0, c0, r, c int) complex128 {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != r || ac != c || r0+r > br || c0+c > bc {
		panic(ErrDimensionMismatch)
	}
	sa := a.RawCMatrix()
	sb := b.RawCMatrix()
	var sum complex128
	for i := 0; i < r; i++ {
		arow := sa.Data[i*sa.Stride : i*sa.Stride+c]
		brow := sb.Data[(r0+i)*sb.Stride+c0 : (r0+i)*sb.Stride+c0+c]
		for j, v := range arow {
			sum += cmplx.Conj(v) * brow[j]
		}
	}
	return sum
}

// Norm1 returns the maximum absolute column sum of a.
func Norm1(a *mat.CDense) float64 {
	r, c := a.Dims()
	raw := a.RawCMatrix()
	best := 0.0
	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += cmplx.Abs(raw.Data[i*raw.Stride+j])
		}
		if sum > best {
			best = sum
		}
	}
	return best
}

// FrobeniusDist returns ‖a−b‖_F.
func FrobeniusDist(a, b *mat.CDense) float64 {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		panic(ErrDimensionMismatch)
	}
	sa := a.RawCMatrix()
	sb := b.RawCMatrix()
	sum := 0.0
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			d := sa.Data[i*sa.Stride+j] - sb.Data[i*sb.Stride+j]
			sum += real(d)*real(d) + imag(d)*imag(d)
		}
	}
	return math.Sqrt(sum)
}

// IsFinite reports whether every entry of a is finite.
func IsFinite(a *mat.CDense) bool {
	r, c := a.Dims()
	raw := a.RawCMatrix()
	for i := 0; i < r; i++ {
		for _, v := range raw.Data[i*raw.Stride : i*raw.Stride+c] {
			if cmplx.IsNaN(v) || cmplx.IsInf(v) {
				return false
			}
		}
	}
	return true
}

// Block returns a copy of the rows×cols block of a starting at (r0, c0).
func Block(a *mat.CDense, r0, c0, rows, cols int) *mat.CDense {
	ar, ac := a.Dims()
	if r0 < 0 || c0 < 0 || r0+rows > ar || c0+cols > ac {
		panic(ErrDimensionMismatch)
	}
	src := a.RawCMatrix()
	data := make([]complex128, rows*cols)
	for i := 0; i < rows; i++ {
		off := (r0+i)*src.Stride + c0
		copy(data[i*cols:(i+1)*cols], src.Data[off:off+cols])
	}
	return mat.NewCDense(rows, cols, data)
}

// SetBlock copies b into dst with its top left corner at (r0, c0).
func SetBlock(dst *mat.CDense, r0, c0 int, b *mat.CDense) {
	dr, dc := dst.Dims()
	br, bc := b.Dims()
	if r0 < 0 || c0 < 0 || r0+br > dr || c0+bc > dc {
		panic(ErrDimensionMismatch)
	}
	d := dst.RawCMatrix()
	s := b.RawCMatrix()
	for i := 0; i < br; i++ {
		off := (r0+i)*d.Stride + c0
		copy(d.Data[off:off+bc], s.Data[i*s.Stride:i*s.Stride+bc])
	}
}

// BlockUpper assembles the upper block-triangular matrix [[a, b], [0, c]].
// The lower left block is left at exact zero.
func BlockUpper(a, b, c *mat.CDense) *mat.CDense {
	n, m := a.Dims()
	if n != m {
		panic(ErrNonSquare)
	}
	for _, x := range []*mat.CDense{b, c} {
		r, k := x.Dims()
		if r != n || k != n {
			panic(ErrDimensionMismatch)
		}
	}
	out := Zeros(2 * n)
	SetBlock(out, 0, 0, a)
	SetBlock(out, 0, n, b)
	SetBlock(out, n, n, c)
	return out
}

// BlockDiag assembles [[a, 0], [0, b]].
func BlockDiag(a, b *mat.CDense) *mat.CDense {
	n, m := a.Dims()
	if n != m {
		panic(ErrNonSquare)
	}
	return BlockUpper(a, Zeros(n), b)
}
