package control

import (
	"fmt"
	"math"
)

// SpeedController is a 2DOF PI controller with anti-windup. Speeds are in
// mechanical rad/s and the output is a torque reference in N·m.
type SpeedController struct {
	Kp        float64
	Ki        float64
	Kt        float64
	MaxTorque float64
	Ts        float64
	integral  float64
	err       float64
	u         float64
}

// NewSpeedController tunes the gains for the closed-loop bandwidth alphaS
// given the inertia j.
func NewSpeedController(j, alphaS, maxTorque, ts float64) (*SpeedController, error) {
	if !(j > 0) {
		return nil, fmt.Errorf("control: inertia must be positive, got %g", j)
	}
	if !(alphaS > 0) {
		return nil, fmt.Errorf("control: speed bandwidth must be positive, got %g", alphaS)
	}
	if !(ts > 0) {
		return nil, fmt.Errorf("control: sampling period must be positive, got %g", ts)
	}
	if maxTorque <= 0 {
		maxTorque = math.Inf(1)
	}
	return &SpeedController{
		Kp:        2 * alphaS * j,
		Ki:        alphaS * alphaS * j,
		Kt:        alphaS * j,
		MaxTorque: maxTorque,
		Ts:        ts,
	}, nil
}

// Output returns the limited torque reference.
func (s *SpeedController) Output(wRef, w float64) float64 {
	s.err = wRef - w
	s.u = s.Kt*wRef - s.Kp*w + s.integral
	return clamp(s.u, -s.MaxTorque, s.MaxTorque)
}

// Update integrates the error. tau is the torque reference actually applied,
// which backs the integrator off when the output was limited downstream.
func (s *SpeedController) Update(tau float64) {
	s.integral += s.Ts * s.Ki * (s.err + (tau-s.u)/s.Kt)
}

// Reset clears the integrator.
func (s *SpeedController) Reset() {
	s.integral = 0
	s.err = 0
	s.u = 0
}

// GetParams returns tunable parameters for live adjustment
func (s *SpeedController) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp":        s.Kp,
		"Ki":        s.Ki,
		"Kt":        s.Kt,
		"MaxTorque": s.MaxTorque,
	}
}

// SetParam adjusts a gain
func (s *SpeedController) SetParam(name string, value float64) error {
	switch name {
	case "Kp":
		s.Kp = value
	case "Ki":
		s.Ki = value
	case "Kt":
		if value == 0 {
			return fmt.Errorf("control: Kt must be non-zero")
		}
		s.Kt = value
	case "MaxTorque":
		s.MaxTorque = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
