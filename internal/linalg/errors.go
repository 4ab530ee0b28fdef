package linalg

import "errors"

var (
	// ErrDimensionMismatch indicates operands with incompatible shapes.
	ErrDimensionMismatch = errors.New("linalg: dimension mismatch")

	// ErrNonSquare indicates a square matrix was required.
	ErrNonSquare = errors.New("linalg: matrix is not square")

	// ErrNaNInf indicates a NaN or Inf entry in an input or a result.
	ErrNaNInf = errors.New("linalg: NaN or Inf encountered")

	// ErrIllConditioned indicates the Padé denominator could not be solved
	// to working precision.
	ErrIllConditioned = errors.New("linalg: ill-conditioned system")

	// ErrTooLarge indicates a norm so large that scaling and squaring would
	// lose all precision.
	ErrTooLarge = errors.New("linalg: matrix norm too large to exponentiate")
)
