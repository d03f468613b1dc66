package fluxvec

import "math/cmplx"

// Regulator is the stator flux and torque controller. It holds no state
// between ticks; kTau is fixed at construction.
type Regulator struct {
	rs       float64
	p        float64
	alphaPsi float64
	kTau     float64
}

// NewRegulator validates the parameters and derives the torque gain.
func NewRegulator(p Parameters) (*Regulator, error) {
	kTau, err := p.TorqueGain()
	if err != nil {
		return nil, err
	}
	return &Regulator{
		rs:       p.Motor.Rs,
		p:        float64(p.Motor.PolePair),
		alphaPsi: p.AlphaPsi,
		kTau:     kTau,
	}, nil
}

// TorqueGain returns k_tau.
func (r *Regulator) TorqueGain() float64 { return r.kTau }

// TorqueEstimate returns 1.5*p*Im(i*conj(psi)).
func (r *Regulator) TorqueEstimate(psi, i complex128) float64 {
	return 1.5 * r.p * imag(i*cmplx.Conj(psi))
}

// VoltageReference returns the unlimited stator voltage reference in rotor
// coordinates.
//
// psiRef is the flux magnitude reference, tauRef the torque reference, psi
// the flux estimate, i the current and w the electrical rotor speed.
func (r *Regulator) VoltageReference(psiRef, tauRef float64, psi, i complex128, w float64) complex128 {
	tau := r.TorqueEstimate(psi, i)

	// Torque error acts through the stator frequency.
	ws := w + r.kTau*(tauRef-tau)

	ePsi := psiRef - cmplx.Abs(psi)
	delta := cmplx.Phase(psi)

	return complex(r.rs, 0)*i +
		complex(0, ws)*psi +
		complex(r.alphaPsi*ePsi, 0)*cmplx.Rect(1, delta)
}
