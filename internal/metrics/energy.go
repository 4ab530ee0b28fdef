package metrics

// Energy is the pulse energy Σ_i Σ_k u_k(i)²·dt.
type Energy struct {
	name  string
	dt    float64
	total float64
}

func NewEnergy(dt float64) *Energy {
	return &Energy{
		name: "energy",
		dt:   dt,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(amps []float64, t float64) {
	for _, val := range amps {
		e.total += val * val * e.dt
	}
}

func (e *Energy) Value() float64 {
	return e.total
}

func (e *Energy) Reset() {
	e.total = 0
}

// Bounds is the fraction of steps whose amplitudes all lie in
// [lower, upper]. A pulse with no steps counts as inside.
type Bounds struct {
	name         string
	lower, upper float64
	violations   int
	samples      int
}

func NewBounds(lower, upper float64) *Bounds {
	return &Bounds{
		name:  "in_bounds",
		lower: lower,
		upper: upper,
	}
}

func (b *Bounds) Name() string {
	return b.name
}

func (b *Bounds) Observe(amps []float64, t float64) {
	b.samples++
	for _, val := range amps {
		if val < b.lower || val > b.upper {
			b.violations++
			break
		}
	}
}

func (b *Bounds) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bounds) Reset() {
	b.violations = 0
	b.samples = 0
}
