package metrics

import (
	"math"
)

// ControlEffort is the mean over steps of Σ_k |u_k|.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(amps []float64, t float64) {
	for _, val := range amps {
		c.sum += math.Abs(val)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// Slew is the largest change of any channel between consecutive steps.
type Slew struct {
	name string
	prev []float64
	max  float64
}

func NewSlew() *Slew {
	return &Slew{name: "max_slew"}
}

func (s *Slew) Name() string { return s.name }

func (s *Slew) Observe(amps []float64, t float64) {
	if s.prev != nil {
		for k, val := range amps {
			s.max = math.Max(s.max, math.Abs(val-s.prev[k]))
		}
	}
	s.prev = append(s.prev[:0], amps...)
}

func (s *Slew) Value() float64 { return s.max }

func (s *Slew) Reset() {
	s.prev = nil
	s.max = 0
}
