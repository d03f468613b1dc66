package control

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/san-kum/fluxdrive/internal/motor"
)

const (
	mtpaPoints  = 200
	anglePoints = 360
)

var sqrt3 = math.Sqrt(3)

// ReferenceLimits configure the flux and torque reference calculation.
// PsiSMax <= 0 disables the explicit flux ceiling.
type ReferenceLimits struct {
	PsiSMin    float64 `yaml:"psi_s_min" json:"psi_s_min"`
	PsiSMax    float64 `yaml:"psi_s_max" json:"psi_s_max"`
	Ku         float64 `yaml:"k_u" json:"k_u"`
	MaxTorque  float64 `yaml:"tau_max" json:"tau_max"`
	MaxCurrent float64 `yaml:"i_s_max" json:"i_s_max"`
}

// FluxTorqueReference computes the flux reference from the MTPA
// characteristic, clamps it to the flux and voltage limits and limits the
// torque to what the current limit allows at that flux.
type FluxTorqueReference struct {
	m      motor.Parameters
	limits ReferenceLimits
	torque []float64
	flux   []float64
}

func NewFluxTorqueReference(m motor.Parameters, limits ReferenceLimits) (*FluxTorqueReference, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if !(limits.MaxCurrent > 0) {
		return nil, fmt.Errorf("control: current limit must be positive, got %g", limits.MaxCurrent)
	}
	if !(limits.Ku > 0) {
		return nil, fmt.Errorf("control: voltage margin must be positive, got %g", limits.Ku)
	}
	if limits.MaxTorque <= 0 {
		limits.MaxTorque = math.Inf(1)
	}
	if limits.PsiSMin <= 0 && m.PsiF > 0 {
		limits.PsiSMin = m.PsiF
	}

	r := &FluxTorqueReference{m: m, limits: limits}
	r.buildMTPA()
	return r, nil
}

// buildMTPA tabulates torque and flux magnitude along the maximum torque per
// ampere trajectory from zero to the current limit.
func (r *FluxTorqueReference) buildMTPA() {
	r.torque = make([]float64, 0, mtpaPoints+1)
	r.flux = make([]float64, 0, mtpaPoints+1)

	for k := 0; k <= mtpaPoints; k++ {
		mag := r.limits.MaxCurrent * float64(k) / mtpaPoints
		best, bestPsi := 0.0, cmplx.Abs(r.m.Flux(0))
		for n := 0; n <= anglePoints; n++ {
			i := cmplx.Rect(mag, math.Pi*float64(n)/anglePoints)
			psi := r.m.Flux(i)
			if tau := r.m.Torque(psi, i); tau > best {
				best, bestPsi = tau, cmplx.Abs(psi)
			}
		}
		if n := len(r.torque); n > 0 && best <= r.torque[n-1] {
			continue
		}
		r.torque = append(r.torque, best)
		r.flux = append(r.flux, bestPsi)
	}
}

// MTPAFlux returns the flux magnitude that produces tau with minimum current.
func (r *FluxTorqueReference) MTPAFlux(tau float64) float64 {
	tau = math.Abs(tau)
	n := len(r.torque)
	if n == 0 {
		return 0
	}
	if tau >= r.torque[n-1] {
		return r.flux[n-1]
	}
	k := sort.SearchFloat64s(r.torque, tau)
	if k == 0 {
		return r.flux[0]
	}
	frac := (tau - r.torque[k-1]) / (r.torque[k] - r.torque[k-1])
	return r.flux[k-1] + frac*(r.flux[k]-r.flux[k-1])
}

// MaxTorque returns the largest torque reachable at flux magnitude psi
// without exceeding the current limit.
func (r *FluxTorqueReference) MaxTorque(psi float64) float64 {
	best := 0.0
	for n := 0; n <= anglePoints; n++ {
		p := cmplx.Rect(psi, math.Pi*float64(n)/anglePoints)
		i := r.m.Current(p)
		if cmplx.Abs(i) > r.limits.MaxCurrent {
			continue
		}
		if tau := r.m.Torque(p, i); tau > best {
			best = tau
		}
	}
	return best
}

// Reference returns the flux reference and the limited torque reference
// for the torque reference tauRef, electrical speed w and DC voltage uDC.
func (r *FluxTorqueReference) Reference(tauRef, w, uDC float64) (float64, float64) {
	psiRef := math.Max(r.MTPAFlux(tauRef), r.limits.PsiSMin)
	if r.limits.PsiSMax > 0 {
		psiRef = math.Min(psiRef, r.limits.PsiSMax)
	}
	if aw := math.Abs(w); aw > 0 {
		psiRef = math.Min(psiRef, r.limits.Ku*uDC/(sqrt3*aw))
	}

	tauMax := math.Min(r.limits.MaxTorque, r.MaxTorque(psiRef))
	return psiRef, clamp(tauRef, -tauMax, tauMax)
}
