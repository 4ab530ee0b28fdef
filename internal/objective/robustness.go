package objective

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/linalg"
)

// BlockSpec locates the sensitivity block inside an augmented propagator.
// The zero value selects rows 0:d and columns d:2d of whatever even square
// propagator it is applied to, so it cannot tell a 2d×2d augmented
// propagator from a plain one of the same size. Callers that know the
// system dimension should use DefaultBlock.
type BlockSpec struct {
	Row, Col   int
	Rows, Cols int
}

// DefaultBlock is the sensitivity block of a d-dimensional system's 2d×2d
// augmented propagator. Applied to a d×d propagator it is a shape error.
func DefaultBlock(d int) BlockSpec {
	return BlockSpec{Row: 0, Col: d, Rows: d, Cols: d}
}

// IsZero reports whether b is the default block.
func (b BlockSpec) IsZero() bool { return b == BlockSpec{} }

func (b BlockSpec) resolve(rows, cols int) (BlockSpec, error) {
	if b.IsZero() {
		if rows != cols || rows%2 != 0 {
			return b, fmt.Errorf("default block needs an even square propagator, got %d×%d: %w", rows, cols, dynamo.ErrShape)
		}
		return DefaultBlock(rows / 2), nil
	}
	if b.Row < 0 || b.Col < 0 || b.Rows <= 0 || b.Cols <= 0 || b.Row+b.Rows > rows || b.Col+b.Cols > cols {
		return b, fmt.Errorf("block %+v outside %d×%d propagator: %w", b, rows, cols, dynamo.ErrShape)
	}
	return b, nil
}

// Robustness returns Σ|B_ij|² of the configured block B of propagator, with
// gradient 2·Re Σ conj(B_ij)·∂B_ij. For a decoupling system B is the first
// order response of the evolution to the perturbation, and the value is zero
// exactly when the pulse is insensitive to it.
func Robustness(propagator *mat.CDense, jacobian [][]*mat.CDense, block BlockSpec) (float64, *mat.Dense, error) {
	pr, pc := propagator.Dims()
	spec, err := block.resolve(pr, pc)
	if err != nil {
		return 0, nil, err
	}

	b := linalg.Block(propagator, spec.Row, spec.Col, spec.Rows, spec.Cols)
	value := real(linalg.TraceProduct(b, b))

	if jacobian == nil {
		return value, nil, nil
	}
	grad, err := gradient(jacobian, func(dU *mat.CDense) float64 {
		return 2 * real(linalg.TraceProductBlock(b, dU, spec.Row, spec.Col, spec.Rows, spec.Cols))
	}, pr, pc)
	if err != nil {
		return 0, nil, err
	}
	return value, grad, nil
}
