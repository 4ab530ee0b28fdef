// Package optim drives quasi-Newton minimization of pulse objectives.
//
// [FindPulse] flattens the control sequence row-major, hands value and
// gradient to gonum's BFGS or L-BFGS and reports progress every
// ReportInterval evaluations. Non-convergence is a result, not an error:
// [Result].Converged is false and the best sequence seen is returned.
// [MultiStart] is the retry policy on top: it tries successive random
// guesses until a goal value is reached.
package optim
