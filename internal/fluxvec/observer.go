package fluxvec

import "github.com/san-kum/fluxdrive/internal/motor"

// Observer estimates the stator flux in estimated rotor coordinates.
type Observer interface {
	// Flux returns the estimate committed by the last Update.
	Flux() complex128
	// Update advances the estimate by one sampling period using the
	// realized voltage u, the current i and the electrical rotor speed w.
	Update(u, i complex128, w float64)
}

// RotorObserver additionally estimates the rotor speed and position, as
// needed in sensorless mode.
type RotorObserver interface {
	Observer
	// Speed returns the electrical rotor speed estimate in rad/s.
	Speed() float64
	// Angle returns the electrical rotor angle estimate in [-pi, pi).
	Angle() float64
}

// SensoredObserver is a flux observer that relies on measured rotor speed
// and position. It corrects the voltage model towards the current model
// with gain g.
type SensoredObserver struct {
	m   motor.Parameters
	ts  float64
	g   float64
	psi complex128
}

// NewSensoredObserver returns an observer initialised to the magnet flux.
func NewSensoredObserver(p Parameters) (*SensoredObserver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &SensoredObserver{
		m:   p.Motor,
		ts:  p.Ts,
		g:   p.G,
		psi: complex(p.Motor.PsiF, 0),
	}, nil
}

func (o *SensoredObserver) Flux() complex128 { return o.psi }

// Update applies one forward-Euler step.
func (o *SensoredObserver) Update(u, i complex128, w float64) {
	e := o.m.Flux(i) - o.psi

	dpsi := u - complex(o.m.Rs, 0)*i - complex(0, w)*o.psi + complex(o.g, 0)*e
	o.psi += complex(o.ts, 0) * dpsi
}
