// Package dynamo provides the core types shared by the pulse engine.
//
// A control sequence is an N×M [gonum.org/v1/gonum/mat.Dense]: one row per
// time step, one column per control channel. The helpers here validate,
// flatten and rebuild sequences for the optimizer, and the package owns the
// shape and evaluation errors the rest of the module wraps.
//
//   - [CheckSequence]: shape and finiteness validation
//   - [Flatten], [Unflatten]: row-major parameter vectors
//   - [EvalError]: a numerical failure tied to a step and channel
//   - [ParallelFor]: chunked fan-out for independent per-step work
//
// # Example
//
//	seq := mat.NewDense(152, 1, nil)
//	x := dynamo.Flatten(seq)
//	back := dynamo.Unflatten(x, 152, 1)
package dynamo
