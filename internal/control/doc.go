// Package control describes controlled quantum systems.
//
// A system maps a vector of control amplitudes to a generator (the matrix
// whose exponential is the step propagator):
//
//   - [ControlSystem]: drift + Σ a_k·C_k
//   - [DecouplingSystem]: the augmented [[G, P], [0, G]] of a control system
//     and a perturbation P, whose exponential carries the first order
//     sensitivity of the evolution to P in its upper right block
//
// Both implement [System], which is all the evolution engine needs.
//
// # Usage
//
//	cs, err := control.NewControlSystem(control.Zeros(2), control.Generator(-1i*math.Pi, control.PauliX()))
//	ds, err := cs.DecouplingSystem(control.Generator(-1i*math.Pi, control.PauliZ()))
//	g, err := ds.Compose([]float64{0.5})   // 4×4 augmented generator
package control
