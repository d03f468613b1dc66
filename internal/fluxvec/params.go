package fluxvec

import (
	"fmt"
	"math"

	"github.com/san-kum/fluxdrive/internal/motor"
)

// Parameters of the flux-vector control loop. Motor holds the parameter
// estimates used by the controller, which need not equal the true machine.
type Parameters struct {
	Motor motor.Parameters `yaml:"motor" json:"motor"`

	// Ts is the sampling period in seconds.
	Ts float64 `yaml:"t_s" json:"t_s"`
	// Bandwidths in rad/s. AlphaS is used only by the speed controller.
	AlphaPsi float64 `yaml:"alpha_psi" json:"alpha_psi"`
	AlphaTau float64 `yaml:"alpha_tau" json:"alpha_tau"`
	AlphaS   float64 `yaml:"alpha_s" json:"alpha_s"`
	// G is the correction gain of the sensored observer in rad/s.
	G float64 `yaml:"g" json:"g"`
	// PsiSMin is the minimum flux operating point. Required when the magnet
	// flux is not positive; zero means unset.
	PsiSMin float64 `yaml:"psi_s_min" json:"psi_s_min"`

	Sensorless bool `yaml:"sensorless" json:"sensorless"`
}

// DefaultParameters returns the tuning of a 2.2-kW permanent-magnet drive.
func DefaultParameters() Parameters {
	return Parameters{
		Motor: motor.Parameters{
			Rs:       3.6,
			Ld:       0.036,
			Lq:       0.051,
			PsiF:     0.545,
			PolePair: 3,
			J:        0.015,
		},
		Ts:         250e-6,
		AlphaPsi:   2 * math.Pi * 100,
		AlphaTau:   2 * math.Pi * 400,
		AlphaS:     2 * math.Pi * 4,
		G:          2 * math.Pi * 15,
		Sensorless: true,
	}
}

// Validate checks the parameters without deriving any gain.
func (p Parameters) Validate() error {
	if err := p.Motor.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	positive := []struct {
		name string
		v    float64
	}{
		{"t_s", p.Ts},
		{"alpha_psi", p.AlphaPsi},
		{"alpha_tau", p.AlphaTau},
		{"alpha_s", p.AlphaS},
	}
	for _, f := range positive {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return &ConfigError{Field: f.name, Value: f.v, Reason: "must be positive and finite"}
		}
	}
	if !(p.G >= 0) || math.IsInf(p.G, 0) {
		return &ConfigError{Field: "g", Value: p.G, Reason: "must be non-negative and finite"}
	}
	if p.PsiSMin < 0 || math.IsNaN(p.PsiSMin) {
		return &ConfigError{Field: "psi_s_min", Value: p.PsiSMin, Reason: "must be non-negative"}
	}
	if p.Motor.PsiF <= 0 && p.PsiSMin <= 0 {
		return &ConfigError{Field: "psi_s_min", Value: p.PsiSMin, Reason: "required when the magnet flux is not positive"}
	}
	return nil
}

// FluxOperatingPoint returns the nominal flux used for gain design.
func (p Parameters) FluxOperatingPoint() float64 {
	if p.Motor.PsiF > 0 {
		return p.Motor.PsiF
	}
	return p.PsiSMin
}

// TorqueSensitivity returns c_delta0, the small-signal torque-vs-load-angle
// gain at the nominal flux operating point.
func (p Parameters) TorqueSensitivity() float64 {
	m := p.Motor
	pp := float64(m.PolePair)
	g := m.Saliency()
	psi0 := p.FluxOperatingPoint()
	if m.PsiF > 0 {
		return 1.5 * pp * (m.PsiF*psi0/m.Ld - g*psi0*psi0)
	}
	return 1.5 * pp * g * psi0 * psi0
}

// TorqueGain validates the parameters and returns k_tau.
func (p Parameters) TorqueGain() (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	c := p.TorqueSensitivity()
	if !(c > 0) || math.IsInf(c, 0) {
		return 0, &ConfigError{Field: "c_delta0", Value: c, Reason: "torque sensitivity must be positive; check l_d, l_q and psi_s_min"}
	}
	return p.AlphaTau / c, nil
}
