// Package metrics summarizes control sequences step by step.
package metrics

import (
	"gonum.org/v1/gonum/mat"
)

// Metric accumulates a scalar over the steps of a pulse.
type Metric interface {
	Name() string
	Observe(amps []float64, t float64)
	Value() float64
	Reset()
}

// Defaults returns the metrics reported for stored runs.
func Defaults(dt, lower, upper float64) []Metric {
	return []Metric{
		NewControlEffort(),
		NewEnergy(dt),
		NewBounds(lower, upper),
		NewSlew(),
	}
}

// Evaluate resets ms, feeds them every row of seq at t = i·dt and returns
// their values by name.
func Evaluate(seq *mat.Dense, dt float64, ms ...Metric) map[string]float64 {
	for _, m := range ms {
		m.Reset()
	}

	rows, _ := seq.Dims()
	for i := 0; i < rows; i++ {
		amps := seq.RawRowView(i)
		t := float64(i) * dt
		for _, m := range ms {
			m.Observe(amps, t)
		}
	}

	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
