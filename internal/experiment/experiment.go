package experiment

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/san-kum/fluxdrive/internal/config"
	"github.com/san-kum/fluxdrive/internal/control"
	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
	"github.com/san-kum/fluxdrive/internal/logging"
	"github.com/san-kum/fluxdrive/internal/plant"
	"github.com/san-kum/fluxdrive/internal/sim"
)

// Experiment is a closed-loop drive simulation built from a config.
type Experiment struct {
	cfg       *config.Config
	simulator *sim.Simulator
	telemetry *fluxvec.Log
	speed     *control.SpeedController
	logger    *log.Logger
}

// New builds the controller, its collaborators and the drive. logger may be nil.
func New(cfg *config.Config, logger *log.Logger) (*Experiment, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	reg := NewRegistry()

	p, err := cfg.ControlParameters()
	if err != nil {
		return nil, err
	}
	speed, err := control.NewSpeedController(p.Motor.J, p.AlphaS, cfg.Control.Limits.MaxTorque, p.Ts)
	if err != nil {
		return nil, fmt.Errorf("speed controller: %w", err)
	}
	limits := cfg.Control.Limits
	if limits.PsiSMin <= 0 {
		limits.PsiSMin = p.PsiSMin
	}
	ref, err := control.NewFluxTorqueReference(p.Motor, limits)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	pwm, err := control.NewPWM(p.Ts, cfg.Control.AngleCompensation)
	if err != nil {
		return nil, fmt.Errorf("pwm: %w", err)
	}

	telemetry := &fluxvec.Log{}
	wo, zeta := cfg.Control.Wo, cfg.Control.ZetaInf
	ctrl, err := fluxvec.New(p, fluxvec.Collaborators{
		SpeedRef:  control.NewStepProfile(cfg.SpeedRef).At,
		Speed:     speed,
		Reference: ref,
		Modulator: pwm,
		Sensorless: func(p fluxvec.Parameters) (fluxvec.RotorObserver, error) {
			return control.NewSensorlessObserver(p.Motor, p.Ts, wo, zeta)
		},
		Recorder: telemetry,
	})
	if err != nil {
		return nil, err
	}

	drive, err := plant.NewDrive(cfg.Motor, cfg.Plant.DCVoltage, cfg.Plant.Friction, plant.StepLoad(cfg.Plant.Load))
	if err != nil {
		return nil, err
	}
	integ, err := reg.GetIntegrator(cfg.Sim.Integrator)
	if err != nil {
		return nil, err
	}
	session, err := sim.NewSession(ctrl, drive, integ, cfg.Sim.Substeps, telemetry)
	if err != nil {
		return nil, err
	}

	simulator := sim.New(session)
	for _, m := range reg.DefaultMetrics(cfg) {
		simulator.AddMetric(m)
	}

	logger.Debug("experiment built",
		"preset", cfg.Preset,
		"sensorless", p.Sensorless,
		"t_s", p.Ts,
		"k_tau", ctrl.TorqueGain(),
		"integrator", cfg.Sim.Integrator,
		"substeps", cfg.Sim.Substeps)

	return &Experiment{
		cfg:       cfg,
		simulator: simulator,
		telemetry: telemetry,
		speed:     speed,
		logger:    logger,
	}, nil
}

// Run simulates the configured duration.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	result, err := e.simulator.Run(ctx, e.cfg.Sim.Duration)
	if err != nil {
		e.logger.Warn("run stopped", "err", err, "steps", stepsOf(result))
		return result, err
	}
	e.logger.Info("run complete", "preset", e.cfg.Preset, "steps", result.StepsTaken)
	return result, nil
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Tunables exposes the speed controller gains and the drive parameters for
// live adjustment.
func (e *Experiment) Tunables() map[string]dynamo.Configurable {
	return map[string]dynamo.Configurable{
		"speed": e.speed,
		"drive": e.simulator.Session().Drive(),
	}
}

func stepsOf(r *sim.Result) int {
	if r == nil {
		return 0
	}
	return r.StepsTaken
}
