// Package motor describes synchronous machines by their electrical and
// mechanical parameters and the flux/current/torque relations they imply in
// rotor coordinates.
package motor

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalid indicates a parameter set that cannot describe a machine.
var ErrInvalid = errors.New("motor: invalid parameters")

// Parameters of a synchronous machine. Inductances are in rotor coordinates
// and the magnet flux is aligned with the d-axis. A zero or negative magnet
// flux describes a reluctance machine.
type Parameters struct {
	Rs       float64 `yaml:"r_s" json:"r_s"`
	Ld       float64 `yaml:"l_d" json:"l_d"`
	Lq       float64 `yaml:"l_q" json:"l_q"`
	PsiF     float64 `yaml:"psi_f" json:"psi_f"`
	PolePair int     `yaml:"p" json:"p"`
	J        float64 `yaml:"j" json:"j"`
}

// Validate reports the first violated constraint.
func (p Parameters) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"r_s", p.Rs},
		{"l_d", p.Ld},
		{"l_q", p.Lq},
		{"psi_f", p.PsiF},
		{"j", p.J},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalid, f.name)
		}
	}
	if p.Rs < 0 {
		return fmt.Errorf("%w: r_s must be non-negative, got %g", ErrInvalid, p.Rs)
	}
	if p.Ld <= 0 {
		return fmt.Errorf("%w: l_d must be positive, got %g", ErrInvalid, p.Ld)
	}
	if p.Lq <= 0 {
		return fmt.Errorf("%w: l_q must be positive, got %g", ErrInvalid, p.Lq)
	}
	if p.PolePair < 1 {
		return fmt.Errorf("%w: pole pairs must be at least 1, got %d", ErrInvalid, p.PolePair)
	}
	return nil
}

// Saliency returns (L_d - L_q)/(L_d*L_q).
func (p Parameters) Saliency() float64 {
	return (p.Ld - p.Lq) / (p.Ld * p.Lq)
}

// Flux returns the stator flux produced by the current i.
func (p Parameters) Flux(i complex128) complex128 {
	return complex(p.Ld*real(i)+p.PsiF, p.Lq*imag(i))
}

// Current returns the stator current that produces the flux psi.
func (p Parameters) Current(psi complex128) complex128 {
	return complex((real(psi)-p.PsiF)/p.Ld, imag(psi)/p.Lq)
}

// Torque returns the electromagnetic torque of the current/flux pair.
func (p Parameters) Torque(psi, i complex128) float64 {
	return 1.5 * float64(p.PolePair) * imag(i*complex(real(psi), -imag(psi)))
}
