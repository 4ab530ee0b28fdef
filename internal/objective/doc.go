// Package objective turns propagators and their Jacobians into scalar
// objective values with gradients shaped like the control sequence.
//
// Every term has the same contract, [Func]: a control sequence in, a value
// and an N×M gradient out. Terms combine additively with [Sum]. Terms that
// need the evolution ([GateFidelity], [Robustness]) are bound to a simulator
// with [Propagation], which evolves once per evaluation and shares the
// result between them.
//
//	obj := objective.Sum(
//		objective.Term{Weight: 1, Func: objective.Propagation(s, ds, dt,
//			objective.ResultTerm{Weight: -1, Func: objective.Fidelity(target, opts)},
//			objective.ResultTerm{Weight: 1, Func: objective.Robust(objective.BlockSpec{})},
//		)},
//		objective.Term{Weight: 0.05, Func: objective.Penalty(bounds)},
//	)
package objective
