package control

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/fluxdrive/internal/motor"
	"github.com/san-kum/fluxdrive/internal/transform"
)

// ErrUnobservable indicates a machine whose rotor position cannot be
// recovered from electrical quantities: no magnet flux and no saliency.
var ErrUnobservable = errors.New("control: rotor position unobservable")

// SensorlessObserver is a speed-adaptive flux observer. The flux estimation
// error is split along and across the auxiliary flux: the first part
// corrects the flux, the second drives a PI speed adaptation of bandwidth
// wo whose output is integrated into the angle.
type SensorlessObserver struct {
	m       motor.Parameters
	ts      float64
	wo      float64
	zetaInf float64

	psi   complex128
	w     float64
	wi    float64
	theta float64
}

// NewSensorlessObserver returns an observer at standstill with the flux set
// to the magnet flux.
func NewSensorlessObserver(m motor.Parameters, ts, wo, zetaInf float64) (*SensorlessObserver, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if !(ts > 0) {
		return nil, fmt.Errorf("control: sampling period must be positive, got %g", ts)
	}
	if !(wo > 0) {
		return nil, fmt.Errorf("control: observer bandwidth must be positive, got %g", wo)
	}
	if !(zetaInf >= 0) {
		return nil, fmt.Errorf("control: observer damping must be non-negative, got %g", zetaInf)
	}
	if m.PsiF <= 0 && m.Ld == m.Lq {
		return nil, ErrUnobservable
	}
	return &SensorlessObserver{
		m:       m,
		ts:      ts,
		wo:      wo,
		zetaInf: zetaInf,
		psi:     complex(m.PsiF, 0),
	}, nil
}

func (o *SensorlessObserver) Flux() complex128 { return o.psi }
func (o *SensorlessObserver) Speed() float64   { return o.w }
func (o *SensorlessObserver) Angle() float64   { return o.theta }

// Update advances the flux, speed and angle estimates. The speed argument
// is ignored; the observer uses its own speed estimate.
func (o *SensorlessObserver) Update(u, i complex128, _ float64) {
	e := o.m.Flux(i) - o.psi

	// Auxiliary flux, nonzero at zero current for magnet machines. The error
	// along it corrects the flux; the error across it is the angle error.
	psiA := complex(o.m.PsiF, 0) + complex(o.m.Ld-o.m.Lq, 0)*cmplx.Conj(i)
	g := o.wo + 2*o.zetaInf*math.Abs(o.w)
	corr := complex(g, 0) * e
	eps := 0.0
	if cmplx.Abs(psiA) > 0 {
		c := e / psiA
		corr = complex(g*real(c), 0) * psiA
		eps = -imag(c)
	}

	dpsi := u - complex(o.m.Rs, 0)*i - complex(0, o.w)*o.psi + corr

	o.psi += complex(o.ts, 0) * dpsi
	o.wi += o.ts * o.wo * o.wo * eps
	w := 2*o.wo*eps + o.wi
	o.theta = transform.WrapAngle(o.theta + o.ts*o.w)
	o.w = w
}
