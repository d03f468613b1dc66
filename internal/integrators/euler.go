// Package integrators advances a dynamo.System by fixed steps. Inputs are
// held constant across a step, which is how an inverter applies a duty
// ratio between two controller updates.
package integrators

import "github.com/san-kum/fluxdrive/internal/dynamo"

// Euler is the explicit forward-Euler method. First order; it needs a
// substep well below the electrical time constant L/R of the machine.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (Euler) Step(sys dynamo.System, x dynamo.State, u dynamo.Control, t, h float64) dynamo.State {
	next := x.Clone()
	axpy(next, h, sys.Derive(x, u, t))
	return next
}

// Hold integrates sys over one sampling period with u held, in n equal
// substeps, and returns the state at the end of the period.
func Hold(in dynamo.Integrator, sys dynamo.System, x dynamo.State, u dynamo.Control, t, period float64, n int) dynamo.State {
	if n < 1 {
		n = 1
	}
	h := period / float64(n)
	for k := 0; k < n; k++ {
		x = in.Step(sys, x, u, t+float64(k)*h, h)
	}
	return x
}

// axpy sets y += a·x.
func axpy(y dynamo.State, a float64, x dynamo.State) {
	for i := range y {
		y[i] += a * x[i]
	}
}
