// Package linalg provides the dense complex matrix primitives the propagation
// engine is built on.
//
// Matrices are [gonum.org/v1/gonum/mat.CDense] values. Products go through
// cblas128 and the Padé denominator solve uses a real embedding factorized with
// [mat.LU], which also supplies the condition estimate used to reject
// ill-conditioned exponentials.
//
//   - [Expm]: scaling-and-squaring Padé matrix exponential
//   - [BlockExpDerivative]: exponential and its Fréchet derivative from one
//     exponential of an upper block-triangular matrix
//   - [Solve], [SolveBlockUpper]: dense and upper block-triangular solves
//   - [BlockUpper], [Block], [SetBlock]: block assembly and extraction
//
// # Errors
//
// Dimension mismatches in the elementary helpers (Mul, Add, ...) are
// programmer errors and panic, as gonum does. Expm, Solve, SolveBlockUpper
// and BlockExpDerivative return the package sentinels instead.
package linalg
