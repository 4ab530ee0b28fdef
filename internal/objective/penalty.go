package objective

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidPenalty is returned for penalty bounds that leave no admissible
// amplitude or step.
var ErrInvalidPenalty = errors.New("objective: invalid penalty bounds")

// PenaltyConfig bounds amplitudes and their step to step changes.
type PenaltyConfig struct {
	Lower, Upper float64
	// Tolerance shrinks [Lower, Upper] on both sides.
	Tolerance float64
	// Rate bounds |a[n+1,k] - a[n,k]|. Zero disables the rate term.
	Rate float64
	// RateTolerance shrinks Rate.
	RateTolerance float64
}

// Validate rejects bounds the tolerances empty and a rate bound that its
// tolerance makes non-positive.
func (c PenaltyConfig) Validate() error {
	lo, hi := c.Lower+c.Tolerance, c.Upper-c.Tolerance
	if math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
		return fmt.Errorf("%w: tolerance %g empties [%g, %g]", ErrInvalidPenalty, c.Tolerance, c.Lower, c.Upper)
	}
	if c.Rate < 0 {
		return fmt.Errorf("%w: negative rate %g", ErrInvalidPenalty, c.Rate)
	}
	if c.Rate > 0 && c.RateTolerance >= c.Rate {
		return fmt.Errorf("%w: rate tolerance %g must be below rate %g", ErrInvalidPenalty, c.RateTolerance, c.Rate)
	}
	return nil
}

// AmplitudePenalty is a soft constraint on seq: quadratic in the distance
// outside [Lower+Tolerance, Upper-Tolerance] for every amplitude and outside
// [-(Rate-RateTolerance), Rate-RateTolerance] for every consecutive
// difference, and exactly zero inside. cfg must pass Validate. seq is not
// modified.
func AmplitudePenalty(seq *mat.Dense, cfg PenaltyConfig) (float64, *mat.Dense, error) {
	if err := cfg.Validate(); err != nil {
		return 0, nil, err
	}
	n, m := seq.Dims()
	grad := mat.NewDense(n, m, nil)
	lo := cfg.Lower + cfg.Tolerance
	hi := cfg.Upper - cfg.Tolerance
	rate := cfg.Rate - cfg.RateTolerance

	var value float64
	for i := 0; i < n; i++ {
		for k := 0; k < m; k++ {
			a := seq.At(i, k)
			switch {
			case a > hi:
				excess := a - hi
				value += excess * excess
				grad.Set(i, k, grad.At(i, k)+2*excess)
			case a < lo:
				excess := lo - a
				value += excess * excess
				grad.Set(i, k, grad.At(i, k)-2*excess)
			}

			if cfg.Rate == 0 || i == 0 {
				continue
			}
			delta := a - seq.At(i-1, k)
			if excess := math.Abs(delta) - rate; excess > 0 {
				value += excess * excess
				g := 2 * excess * math.Copysign(1, delta)
				grad.Set(i, k, grad.At(i, k)+g)
				grad.Set(i-1, k, grad.At(i-1, k)-g)
			}
		}
	}
	return value, grad, nil
}
