// Package analysis characterizes optimized pulses.
//
//   - [Spectrum]: power spectrum of one control channel
//   - [RobustnessProfile]: fidelity as a function of perturbation strength
//
// # Robustness
//
// A pulse that is first order robust to a perturbation P has a profile
// that is flat at δ = 0:
//
//	points, err := analysis.RobustnessProfile(ctx, ens, sys, P, target, opts, seq, dt, analysis.Strengths(0.2, 41))
package analysis
