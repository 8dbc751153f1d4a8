package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for engine operations.
var (
	// ErrInvalidParameter indicates a non-finite or out-of-sign physical
	// constant. Always recovered by default substitution, never fatal.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrInvalidState indicates NaN or Inf in the state vector after a step.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnrecoverable indicates an invalid state with no checkpoint to
	// roll back to. Stepping halts until Reset.
	ErrUnrecoverable = errors.New("dynamo: unrecoverable state (no checkpoint)")

	// ErrImportFormat indicates a payload matching neither the current
	// export schema nor the legacy flat-array format.
	ErrImportFormat = errors.New("dynamo: unrecognized import format")

	// ErrHalted indicates Step was called after an unrecoverable failure.
	ErrHalted = errors.New("dynamo: engine halted, reset required")
)

// SimulationError wraps an error with step context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
