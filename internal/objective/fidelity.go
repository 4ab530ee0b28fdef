package objective

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/qpulse/internal/dynamo"
	"github.com/san-kum/qpulse/internal/linalg"
)

// PhaseMode selects how global phase enters the gate fidelity.
type PhaseMode int

const (
	// PhaseSensitive uses Re Tr(T†U): a global phase lowers the value.
	PhaseSensitive PhaseMode = iota
	// PhaseInsensitive uses |Tr(T†U)|²: any global phase is optimal.
	PhaseInsensitive
)

func (p PhaseMode) String() string {
	switch p {
	case PhaseSensitive:
		return "sensitive"
	case PhaseInsensitive:
		return "insensitive"
	}
	return fmt.Sprintf("PhaseMode(%d)", int(p))
}

// ParsePhaseMode accepts "sensitive" or "insensitive". The empty string is
// PhaseSensitive.
func ParsePhaseMode(s string) (PhaseMode, error) {
	switch s {
	case "", "sensitive":
		return PhaseSensitive, nil
	case "insensitive":
		return PhaseInsensitive, nil
	}
	return 0, fmt.Errorf("unknown phase mode %q", s)
}

// FidelityOptions configures GateFidelity.
type FidelityOptions struct {
	Phase PhaseMode
	// Unnormalized drops the 1/d (sensitive) or 1/d² (insensitive) factor.
	Unnormalized bool
}

// GateFidelity compares the top left d×d block of propagator with the d×d
// target. With the default options the value is Re Tr(T†U)/d, which is 1
// exactly when U equals T. The gradient has one entry per Jacobian element
// and is nil when jacobian is nil. Nil Jacobian entries count as zero.
func GateFidelity(target, propagator *mat.CDense, jacobian [][]*mat.CDense, opts FidelityOptions) (float64, *mat.Dense, error) {
	d, c := target.Dims()
	if d != c {
		return 0, nil, fmt.Errorf("target is %d×%d: %w", d, c, dynamo.ErrShape)
	}
	pr, pc := propagator.Dims()
	if pr < d || pc < d {
		return 0, nil, fmt.Errorf("target %d×%d exceeds propagator %d×%d: %w", d, d, pr, pc, dynamo.ErrShape)
	}

	tau := linalg.TraceProductBlock(target, propagator, 0, 0, d, d)

	var value float64
	norm := 1.0
	switch opts.Phase {
	case PhaseInsensitive:
		if !opts.Unnormalized {
			norm = 1 / float64(d*d)
		}
		abs := cmplx.Abs(tau)
		value = norm * abs * abs
	default:
		if !opts.Unnormalized {
			norm = 1 / float64(d)
		}
		value = norm * real(tau)
	}
	if math.IsNaN(value) {
		return 0, nil, linalg.ErrNaNInf
	}

	if jacobian == nil {
		return value, nil, nil
	}

	grad, err := gradient(jacobian, func(dU *mat.CDense) float64 {
		dtau := linalg.TraceProductBlock(target, dU, 0, 0, d, d)
		if opts.Phase == PhaseInsensitive {
			return 2 * norm * real(cmplx.Conj(tau)*dtau)
		}
		return norm * real(dtau)
	}, pr, pc)
	if err != nil {
		return 0, nil, err
	}
	return value, grad, nil
}

// gradient applies f to every Jacobian entry, checking each entry's shape.
func gradient(jacobian [][]*mat.CDense, f func(*mat.CDense) float64, rows, cols int) (*mat.Dense, error) {
	n := len(jacobian)
	if n == 0 {
		return nil, fmt.Errorf("empty jacobian: %w", dynamo.ErrShape)
	}
	m := len(jacobian[0])
	if m == 0 {
		return nil, fmt.Errorf("jacobian without channels: %w", dynamo.ErrShape)
	}
	grad := mat.NewDense(n, m, nil)
	for i, row := range jacobian {
		if len(row) != m {
			return nil, fmt.Errorf("jacobian row %d has %d channels, want %d: %w", i, len(row), m, dynamo.ErrShape)
		}
		for k, dU := range row {
			if dU == nil {
				continue
			}
			if r, c := dU.Dims(); r != rows || c != cols {
				return nil, fmt.Errorf("jacobian[%d][%d] is %d×%d, want %d×%d: %w", i, k, r, c, rows, cols, dynamo.ErrShape)
			}
			grad.Set(i, k, f(dU))
		}
	}
	return grad, nil
}
