package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for pulse evaluation.
var (
	// ErrShape indicates mismatched dimensions between generators, sequences
	// and systems. Shapes are never broadcast or truncated.
	ErrShape = errors.New("dynamo: shape mismatch")

	// ErrInvalidStep indicates a non-positive or non-finite step duration.
	ErrInvalidStep = errors.New("dynamo: step duration must be positive and finite")

	// ErrInvalidSequence indicates a control sequence holding NaN or Inf.
	ErrInvalidSequence = errors.New("dynamo: invalid control sequence (NaN or Inf detected)")

	// ErrNoControls indicates a control system built without control generators.
	ErrNoControls = errors.New("dynamo: at least one control generator is required")

	// ErrCanceled indicates the optimization was stopped between evaluations.
	ErrCanceled = errors.New("dynamo: optimization canceled by context")
)

// EvalError wraps a numerical failure with the step and channel that
// produced it. Channel is -1 when the failure is not channel specific.
type EvalError struct {
	Step    int
	Channel int
	Wrapped error
}

func (e *EvalError) Error() string {
	if e.Channel < 0 {
		return fmt.Sprintf("step %d: %v", e.Step, e.Wrapped)
	}
	return fmt.Sprintf("step %d channel %d: %v", e.Step, e.Channel, e.Wrapped)
}

func (e *EvalError) Unwrap() error {
	return e.Wrapped
}
