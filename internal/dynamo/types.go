package dynamo

import (
	"math"
	"math/cmplx"
)

// State is a plant state vector. For a drive it is [psi_d, psi_q, w_M,
// theta_M].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Control holds the plant inputs, the duty ratios of a drive.
type Control []float64

func (c Control) Clone() Control {
	out := make(Control, len(c))
	copy(out, c)
	return out
}

// System is a continuous-time plant, dX/dt = f(X, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Sample is what a simulation exposes to metrics and observers after each
// tick: the plant state, the applied control and the controller telemetry.
type Sample struct {
	Time    float64
	State   State
	Control Control
	Values  map[string]float64
}

// Metric accumulates a figure of merit over the ticks of a run.
type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

// Observer sees every tick, e.g. to record telemetry or emit CAN frames.
type Observer interface {
	OnStep(s Sample)
}

// Configurable exposes parameters that can be tuned while a drive runs.
// SetParam rejects unknown names and out-of-range values.
type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// IsFinite reports whether z has finite real and imaginary parts.
func IsFinite(z complex128) bool {
	return !cmplx.IsNaN(z) && !cmplx.IsInf(z)
}
