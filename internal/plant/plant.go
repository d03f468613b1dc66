// Package plant models a synchronous motor drive in continuous time: an
// averaged two-level inverter feeding a non-saturating machine in rotor
// coordinates, coupled to a rigid mechanical load.
package plant

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/motor"
	"github.com/san-kum/fluxdrive/internal/transform"
)

// State indices.
const (
	FluxD = iota
	FluxQ
	Speed
	Position
)

// ErrInvalid reports a drive that cannot be simulated.
var ErrInvalid = errors.New("plant: invalid drive parameters")

// LoadTorque returns the load torque in N·m at time t.
type LoadTorque func(t float64) float64

// Drive is a synchronous motor drive. Speed and Position in the state are
// mechanical; the flux linkage is in rotor coordinates.
type Drive struct {
	Motor     motor.Parameters
	DCVoltage float64
	// Friction is the viscous friction coefficient in N·m·s.
	Friction float64
	Load     LoadTorque
}

func NewDrive(m motor.Parameters, uDC, friction float64, load LoadTorque) (*Drive, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if m.J <= 0 {
		return nil, fmt.Errorf("%w: inertia %v must be positive", ErrInvalid, m.J)
	}
	if !(uDC > 0) || math.IsInf(uDC, 0) {
		return nil, fmt.Errorf("%w: dc voltage %v must be positive", ErrInvalid, uDC)
	}
	if friction < 0 {
		return nil, fmt.Errorf("%w: friction %v must not be negative", ErrInvalid, friction)
	}
	if load == nil {
		load = func(float64) float64 { return 0 }
	}
	return &Drive{Motor: m, DCVoltage: uDC, Friction: friction, Load: load}, nil
}

func (d *Drive) StateDim() int   { return 4 }
func (d *Drive) ControlDim() int { return 3 }

// InitialState is the machine at standstill with the magnet flux only.
func (d *Drive) InitialState() dynamo.State {
	return dynamo.State{d.Motor.PsiF, 0, 0, 0}
}

// Derive evaluates the drive dynamics for the duty ratios u = [d_a, d_b, d_c].
func (d *Drive) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	psi := complex(x[FluxD], x[FluxQ])
	wM := x[Speed]
	p := float64(d.Motor.PolePair)
	theta := p * x[Position]

	us := d.StatorVoltage(u)
	ur := transform.Rotate(us, -theta)
	i := d.Motor.Current(psi)

	dpsi := ur - complex(d.Motor.Rs, 0)*i - complex(0, p*wM)*psi
	tau := d.Motor.Torque(psi, i)
	dw := (tau - d.Load(t) - d.Friction*wM) / d.Motor.J

	return dynamo.State{real(dpsi), imag(dpsi), dw, wM}
}

// StatorVoltage is the averaged inverter output in stator coordinates.
func (d *Drive) StatorVoltage(u dynamo.Control) complex128 {
	if len(u) < 3 {
		return 0
	}
	return complex(d.DCVoltage, 0) * transform.ABCToComplex([3]float64{u[0], u[1], u[2]})
}

// Current returns the stator current in rotor coordinates.
func (d *Drive) Current(x dynamo.State) complex128 {
	return d.Motor.Current(complex(x[FluxD], x[FluxQ]))
}

// PhaseCurrents returns the measured phase currents.
func (d *Drive) PhaseCurrents(x dynamo.State) [3]float64 {
	theta := float64(d.Motor.PolePair) * x[Position]
	return transform.ComplexToABC(transform.Rotate(d.Current(x), theta))
}

// Torque returns the electromagnetic torque.
func (d *Drive) Torque(x dynamo.State) float64 {
	psi := complex(x[FluxD], x[FluxQ])
	return d.Motor.Torque(psi, d.Motor.Current(psi))
}

// FluxMagnitude returns |psi_s|.
func (d *Drive) FluxMagnitude(x dynamo.State) float64 {
	return cmplx.Abs(complex(x[FluxD], x[FluxQ]))
}

func (d *Drive) GetParams() map[string]float64 {
	return map[string]float64{
		"u_dc":     d.DCVoltage,
		"friction": d.Friction,
		"j":        d.Motor.J,
	}
}

func (d *Drive) SetParam(name string, value float64) error {
	switch name {
	case "u_dc":
		if !(value > 0) {
			return fmt.Errorf("%w: dc voltage %v must be positive", dynamo.ErrParameterBounds, value)
		}
		d.DCVoltage = value
	case "friction":
		if value < 0 {
			return fmt.Errorf("%w: friction %v must not be negative", dynamo.ErrParameterBounds, value)
		}
		d.Friction = value
	case "j":
		if !(value > 0) {
			return fmt.Errorf("%w: inertia %v must be positive", dynamo.ErrParameterBounds, value)
		}
		d.Motor.J = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
