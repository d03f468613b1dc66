package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
	"github.com/san-kum/fluxdrive/internal/integrators"
	"github.com/san-kum/fluxdrive/internal/plant"
)

// Session couples a controller with a drive. Each tick samples the drive,
// runs the controller and integrates the drive over one sampling period.
// The inverter applies a command one period after it was computed: during
// tick k the drive sees the duty ratios of tick k-1, which is the delay the
// modulator's angle compensation and realized-voltage averaging assume.
type Session struct {
	ctrl      *fluxvec.Controller
	drive     *plant.Drive
	integ     dynamo.Integrator
	telemetry *fluxvec.Log
	substeps  int

	x    dynamo.State
	duty dynamo.Control // commanded last tick, applied during this one
	step int
}

// NewSession starts the drive from its initial state. telemetry is the log
// given to the controller as its recorder, or nil.
func NewSession(ctrl *fluxvec.Controller, drive *plant.Drive, integ dynamo.Integrator, substeps int, telemetry *fluxvec.Log) (*Session, error) {
	if ctrl == nil || drive == nil || integ == nil {
		return nil, errors.New("sim: session needs a controller, a drive and an integrator")
	}
	if substeps < 1 {
		return nil, fmt.Errorf("%w: substeps %d must be at least 1", dynamo.ErrParameterBounds, substeps)
	}
	return &Session{
		ctrl:      ctrl,
		drive:     drive,
		integ:     integ,
		telemetry: telemetry,
		substeps:  substeps,
		x:         drive.InitialState(),
		duty:      make(dynamo.Control, drive.ControlDim()),
	}, nil
}

// Feedback samples the drive at the current state.
func (s *Session) Feedback() fluxvec.Feedback {
	return fluxvec.Feedback{
		Currents:  s.drive.PhaseCurrents(s.x),
		DCVoltage: s.drive.DCVoltage,
		Speed:     s.x[plant.Speed],
		Position:  s.x[plant.Position],
	}
}

// Tick runs one sampling period and returns the sample taken at its start.
// The sample's Control is the command issued on this tick.
func (s *Session) Tick() (dynamo.Sample, error) {
	t := s.ctrl.Time()
	x := s.x.Clone()

	out := s.ctrl.Step(s.Feedback())
	applied := s.duty
	s.duty = dynamo.Control(out.Duty[:]).Clone()

	sample := dynamo.Sample{Time: t, State: x, Control: s.duty.Clone()}
	if s.telemetry != nil {
		if r, ok := s.telemetry.Last(); ok {
			sample.Values = r.Values()
		}
	}

	s.x = integrators.Hold(s.integ, s.drive, s.x, applied, t, out.SamplingPeriod, s.substeps)
	s.step++

	if !s.x.IsValid() || !dynamo.IsFinite(s.ctrl.Flux()) {
		return sample, &dynamo.SimulationError{
			Tick:    s.step,
			Time:    s.ctrl.Time(),
			State:   s.x.Clone(),
			Flux:    s.ctrl.Flux(),
			Wrapped: dynamo.ErrUnstable,
		}
	}
	return sample, nil
}

func (s *Session) State() dynamo.State { return s.x.Clone() }

func (s *Session) Time() float64 { return s.ctrl.Time() }

func (s *Session) Steps() int { return s.step }

func (s *Session) Drive() *plant.Drive { return s.drive }

func (s *Session) Controller() *fluxvec.Controller { return s.ctrl }
