package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// CheckSequence validates a control sequence against the number of channels
// of a system and returns its number of steps.
func CheckSequence(seq *mat.Dense, channels int) (int, error) {
	if seq == nil || seq.IsEmpty() {
		return 0, fmt.Errorf("empty control sequence: %w", ErrShape)
	}
	rows, cols := seq.Dims()
	if cols != channels {
		return 0, fmt.Errorf("sequence has %d channels, system has %d: %w", cols, channels, ErrShape)
	}
	if !IsFinite(seq) {
		return 0, ErrInvalidSequence
	}
	return rows, nil
}

// CheckStep validates a step duration.
func CheckStep(dt float64) error {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("dt=%v: %w", dt, ErrInvalidStep)
	}
	return nil
}

// IsFinite reports whether every entry of m is finite.
func IsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// Flatten copies a sequence into a row-major parameter vector.
func Flatten(seq *mat.Dense) []float64 {
	r, c := seq.Dims()
	x := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		x = append(x, seq.RawRowView(i)...)
	}
	return x
}

// Unflatten copies a row-major parameter vector into a new rows×cols sequence.
func Unflatten(x []float64, rows, cols int) *mat.Dense {
	if len(x) != rows*cols {
		panic(ErrShape)
	}
	data := make([]float64, len(x))
	copy(data, x)
	return mat.NewDense(rows, cols, data)
}

// Times returns the start time of each of n steps of duration dt.
func Times(n int, dt float64) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * dt
	}
	return t
}
