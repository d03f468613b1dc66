package fluxvec

import (
	"fmt"

	"github.com/san-kum/fluxdrive/internal/transform"
)

// SpeedController is the outer speed loop. Speeds are mechanical.
type SpeedController interface {
	Output(wRef, w float64) float64
	Update(tauApplied float64)
}

// ReferenceShaper maps a torque reference to a flux reference and a torque
// reference limited by the current, voltage and torque ceilings.
type ReferenceShaper interface {
	Reference(tauRef, w, uDC float64) (psiRef, tauLim float64)
}

// Modulator turns a voltage reference into duty ratios and reports the
// voltage it could realize.
type Modulator interface {
	Output(uRef complex128, uDC, theta, w float64) (duty [3]float64, uLim complex128)
	Update(uLim complex128)
	RealizedVoltage() complex128
}

// SpeedReference returns the electrical speed reference at time t.
type SpeedReference func(t float64) float64

// Collaborators are the components outside the flux and torque loop.
// Sensorless builds the rotor observer and is required only in sensorless
// mode. Recorder may be nil.
type Collaborators struct {
	SpeedRef   SpeedReference
	Speed      SpeedController
	Reference  ReferenceShaper
	Modulator  Modulator
	Sensorless func(p Parameters) (RotorObserver, error)
	Recorder   Recorder
}

// Feedback is the measurement of one sampling instant. Speed and Position
// are mechanical and used only in sensored mode.
type Feedback struct {
	Currents  [3]float64
	DCVoltage float64
	Speed     float64
	Position  float64
}

// Output is the actuation command of one tick.
type Output struct {
	SamplingPeriod float64
	Duty           [3]float64
	VoltageRef     complex128
	VoltageLimited complex128
}

// rotorSource yields the electrical rotor speed and angle of a tick.
type rotorSource interface {
	rotor(fb Feedback) (w, theta float64)
}

type measuredRotor struct{ p float64 }

func (m measuredRotor) rotor(fb Feedback) (float64, float64) {
	return m.p * fb.Speed, transform.WrapAngle(m.p * fb.Position)
}

type estimatedRotor struct{ obs RotorObserver }

func (e estimatedRotor) rotor(Feedback) (float64, float64) {
	return e.obs.Speed(), e.obs.Angle()
}

// Clock counts ticks of a fixed period.
type Clock struct {
	period float64
	ticks  uint64
}

func (c *Clock) Time() float64 { return float64(c.ticks) * c.period }

func (c *Clock) Ticks() uint64 { return c.ticks }

func (c *Clock) Period() float64 { return c.period }

// Advance moves the clock forward by one period.
func (c *Clock) Advance() { c.ticks++ }

// Controller sequences one tick of flux-vector control.
type Controller struct {
	params    Parameters
	p         float64
	regulator *Regulator
	observer  Observer
	rotor     rotorSource
	speedRef  SpeedReference
	speed     SpeedController
	reference ReferenceShaper
	modulator Modulator
	recorder  Recorder
	clock     Clock
}

// New validates the parameters, derives the torque gain and selects the
// observer variant for the configured mode.
func New(p Parameters, c Collaborators) (*Controller, error) {
	reg, err := NewRegulator(p)
	if err != nil {
		return nil, err
	}
	switch {
	case c.SpeedRef == nil:
		return nil, fmt.Errorf("%w: speed reference missing", ErrConfig)
	case c.Speed == nil:
		return nil, fmt.Errorf("%w: speed controller missing", ErrConfig)
	case c.Reference == nil:
		return nil, fmt.Errorf("%w: reference shaper missing", ErrConfig)
	case c.Modulator == nil:
		return nil, fmt.Errorf("%w: modulator missing", ErrConfig)
	}

	ctrl := &Controller{
		params:    p,
		p:         float64(p.Motor.PolePair),
		regulator: reg,
		speedRef:  c.SpeedRef,
		speed:     c.Speed,
		reference: c.Reference,
		modulator: c.Modulator,
		recorder:  c.Recorder,
		clock:     Clock{period: p.Ts},
	}

	if p.Sensorless {
		if c.Sensorless == nil {
			return nil, fmt.Errorf("%w: sensorless mode without a rotor observer", ErrNoRotorSource)
		}
		obs, err := c.Sensorless(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoRotorSource, err)
		}
		ctrl.observer = obs
		ctrl.rotor = estimatedRotor{obs: obs}
	} else {
		obs, err := NewSensoredObserver(p)
		if err != nil {
			return nil, err
		}
		ctrl.observer = obs
		ctrl.rotor = measuredRotor{p: ctrl.p}
	}

	return ctrl, nil
}

// Step runs one tick and returns the command for the next sampling period.
// The flux estimate used for regulation is the one committed by the
// previous tick; the new estimate is committed only after the voltage
// reference has been computed.
func (c *Controller) Step(fb Feedback) Output {
	t := c.clock.Time()
	w, theta := c.rotor.rotor(fb)
	u := c.modulator.RealizedVoltage()

	wRef := c.speedRef(t)
	tauRef := c.speed.Output(wRef/c.p, w/c.p)
	psiRef, tauLim := c.reference.Reference(tauRef, w, fb.DCVoltage)

	i := transform.Rotate(transform.ABCToComplex(fb.Currents), -theta)
	psi := c.observer.Flux()

	uRef := c.regulator.VoltageReference(psiRef, tauLim, psi, i, w)
	duty, uLim := c.modulator.Output(uRef, fb.DCVoltage, theta, w)

	c.observer.Update(u, i, w)
	c.speed.Update(tauLim)
	c.modulator.Update(uLim)

	if c.recorder != nil {
		c.recorder.Record(Record{
			Time:      t,
			SpeedRef:  wRef,
			Speed:     w,
			Angle:     theta,
			Current:   i,
			Flux:      psi,
			FluxRef:   psiRef,
			TorqueRef: tauLim,
			Torque:    c.regulator.TorqueEstimate(psi, i),
			DCVoltage: fb.DCVoltage,
			Voltage:   u,
		})
	}
	c.clock.Advance()

	return Output{
		SamplingPeriod: c.params.Ts,
		Duty:           duty,
		VoltageRef:     uRef,
		VoltageLimited: uLim,
	}
}

// Flux returns the committed flux estimate.
func (c *Controller) Flux() complex128 { return c.observer.Flux() }

// Time returns the controller clock.
func (c *Controller) Time() float64 { return c.clock.Time() }

// TorqueGain returns the derived k_tau.
func (c *Controller) TorqueGain() float64 { return c.regulator.TorqueGain() }

// Parameters returns the validated parameters.
func (c *Controller) Parameters() Parameters { return c.params }
