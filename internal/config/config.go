package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fluxdrive/internal/control"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
	"github.com/san-kum/fluxdrive/internal/motor"
	"github.com/san-kum/fluxdrive/internal/plant"
)

const (
	DefaultDuration   = 1.4
	DefaultSubsteps   = 10
	DefaultIntegrator = "rk4"
	DefaultDCVoltage  = 540.0
)

var ErrInvalid = errors.New("config: invalid configuration")

// Config describes one closed-loop drive simulation. Motor is the true
// machine; Control.Motor holds the estimates used by the controller.
type Config struct {
	Preset   string           `yaml:"preset,omitempty"`
	Motor    motor.Parameters `yaml:"motor"`
	Control  ControlConfig    `yaml:"control"`
	Plant    PlantConfig      `yaml:"plant"`
	SpeedRef []control.Step   `yaml:"speed_ref"`
	Sim      SimConfig        `yaml:"sim"`
}

type ControlConfig struct {
	fluxvec.Parameters `yaml:",inline"`

	Limits            control.ReferenceLimits `yaml:"limits"`
	AngleCompensation float64                 `yaml:"k_comp"`
	// Sensorless observer tuning.
	Wo      float64 `yaml:"w_o"`
	ZetaInf float64 `yaml:"zeta_inf"`
}

type PlantConfig struct {
	DCVoltage float64          `yaml:"u_dc"`
	Friction  float64          `yaml:"friction"`
	Load      []plant.LoadStep `yaml:"load"`
}

type SimConfig struct {
	Duration   float64 `yaml:"duration"`
	Substeps   int     `yaml:"substeps"`
	Integrator string  `yaml:"integrator"`
}

// DefaultConfig is the sensorless 2.2-kW permanent-magnet drive.
func DefaultConfig() *Config {
	p := fluxvec.DefaultParameters()
	return &Config{
		Preset: "pmsm_2kw",
		Motor:  p.Motor,
		Control: ControlConfig{
			Parameters: p,
			Limits: control.ReferenceLimits{
				Ku:         0.9,
				MaxTorque:  1.5 * 14,
				MaxCurrent: 1.5 * math.Sqrt2 * 5,
			},
			AngleCompensation: control.DefaultAngleCompensation,
			Wo:                2 * math.Pi * 40,
			ZetaInf:           0.2,
		},
		Plant: PlantConfig{
			DCVoltage: DefaultDCVoltage,
			Load:      []plant.LoadStep{{Time: 0.8, Torque: 14}},
		},
		SpeedRef: []control.Step{{Time: 0.2, Speed: 2 * math.Pi * 75}},
		Sim: SimConfig{
			Duration:   DefaultDuration,
			Substeps:   DefaultSubsteps,
			Integrator: DefaultIntegrator,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ControlParameters returns the validated control-loop parameters.
func (c *Config) ControlParameters() (fluxvec.Parameters, error) {
	p := c.Control.Parameters
	if err := p.Validate(); err != nil {
		return p, err
	}
	if _, err := p.TorqueGain(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate checks everything needed to build a simulation.
func (c *Config) Validate() error {
	if _, err := c.ControlParameters(); err != nil {
		return err
	}
	if err := c.Motor.Validate(); err != nil {
		return fmt.Errorf("%w: plant motor: %w", ErrInvalid, err)
	}
	if !(c.Plant.DCVoltage > 0) {
		return fmt.Errorf("%w: u_dc must be positive, got %g", ErrInvalid, c.Plant.DCVoltage)
	}
	if !(c.Sim.Duration > 0) {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalid, c.Sim.Duration)
	}
	if c.Sim.Substeps < 1 {
		return fmt.Errorf("%w: substeps must be at least 1, got %d", ErrInvalid, c.Sim.Substeps)
	}
	if c.Control.Sensorless && !(c.Control.Wo > 0) {
		return fmt.Errorf("%w: sensorless mode needs w_o > 0", ErrInvalid)
	}
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	cp.SpeedRef = append([]control.Step(nil), c.SpeedRef...)
	cp.Plant.Load = append([]plant.LoadStep(nil), c.Plant.Load...)
	return &cp
}

// SetParam overrides one tuning value by its yaml name.
func (c *Config) SetParam(name string, value float64) error {
	switch name {
	case "t_s":
		c.Control.Ts = value
	case "alpha_psi":
		c.Control.AlphaPsi = value
	case "alpha_tau":
		c.Control.AlphaTau = value
	case "alpha_s":
		c.Control.AlphaS = value
	case "g":
		c.Control.G = value
	case "w_o":
		c.Control.Wo = value
	case "u_dc":
		c.Plant.DCVoltage = value
	case "duration":
		c.Sim.Duration = value
	default:
		return fmt.Errorf("%w: unknown param: %s", ErrInvalid, name)
	}
	return nil
}
