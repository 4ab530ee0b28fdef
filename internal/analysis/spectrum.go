package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/mat"
)

// SpectrumPoint is the power of one frequency bin.
type SpectrumPoint struct {
	Frequency float64
	Power     float64
}

// Spectrum returns the one-sided power spectrum |X_k|²/N of channel k of
// seq sampled every dt, for bins 0..N/2. Any N is accepted.
func Spectrum(seq *mat.Dense, channel int, dt float64) ([]SpectrumPoint, error) {
	rows, cols := seq.Dims()
	if channel < 0 || channel >= cols {
		return nil, fmt.Errorf("analysis: channel %d out of range [0, %d)", channel, cols)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("analysis: step %g must be positive", dt)
	}

	samples := mat.Col(nil, channel, seq)
	coeffs := fft.FFTReal(samples)

	n := float64(rows)
	out := make([]SpectrumPoint, rows/2+1)
	for k := range out {
		a := cmplx.Abs(coeffs[k])
		out[k] = SpectrumPoint{
			Frequency: float64(k) / (n * dt),
			Power:     a * a / n,
		}
	}
	return out, nil
}

// Dominant returns the non-DC bin with the largest power, or the DC bin when
// there is no other.
func Dominant(spec []SpectrumPoint) SpectrumPoint {
	if len(spec) == 0 {
		return SpectrumPoint{}
	}
	best := spec[0]
	if len(spec) > 1 {
		best = spec[1]
		for _, p := range spec[2:] {
			if p.Power > best.Power {
				best = p
			}
		}
	}
	return best
}
