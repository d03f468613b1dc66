package dynamo

import (
	"errors"
	"fmt"
)

var (
	// ErrUnstable reports a plant state or flux estimate that stopped being
	// finite.
	ErrUnstable = errors.New("dynamo: drive diverged")

	ErrParameterBounds = errors.New("dynamo: parameter out of bounds")

	ErrContextCanceled = errors.New("dynamo: run canceled")
)

// SimulationError locates a failure at a controller tick. Time is the
// controller clock after the tick; State and Flux are the plant state and the
// controller's flux estimate at that point.
type SimulationError struct {
	Tick    int
	Time    float64
	State   State
	Flux    complex128
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("tick %d (t = %.6g s): %v", e.Tick, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
