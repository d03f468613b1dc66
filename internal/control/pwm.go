package control

import (
	"fmt"
	"math"

	"github.com/san-kum/fluxdrive/internal/transform"
)

// DefaultAngleCompensation compensates the angle travelled during the
// computational delay and the zero-order hold, in sampling periods.
const DefaultAngleCompensation = 1.5

// PWM computes duty ratios with min-max common-mode injection and limits
// the voltage to the hexagon realizable from the DC bus. Voltages passed in
// and out are in rotor coordinates.
type PWM struct {
	ts       float64
	kComp    float64
	realized complex128
	prevLim  complex128
}

func NewPWM(ts, kComp float64) (*PWM, error) {
	if !(ts > 0) {
		return nil, fmt.Errorf("control: sampling period must be positive, got %g", ts)
	}
	return &PWM{ts: ts, kComp: kComp}, nil
}

// Output returns the duty ratios and the limited voltage reference.
func (p *PWM) Output(uRef complex128, uDC, theta, w float64) ([3]float64, complex128) {
	thetaComp := theta + p.kComp*p.ts*w
	d, uLim := DutyRatios(transform.Rotate(uRef, thetaComp), uDC)
	return d, transform.Rotate(uLim, -thetaComp)
}

// Update stores the limited reference. The voltage realized over the next
// period is the mean of the last two references.
func (p *PWM) Update(uLim complex128) {
	p.realized = 0.5 * (p.prevLim + uLim)
	p.prevLim = uLim
}

func (p *PWM) RealizedVoltage() complex128 { return p.realized }

// DutyRatios maps a stationary-frame voltage reference to duty ratios in
// [0, 1] and returns the voltage they realize. Outside the linear range the
// reference is scaled down keeping its direction.
func DutyRatios(uRef complex128, uDC float64) ([3]float64, complex128) {
	abc := transform.ComplexToABC(uRef)
	hi := math.Max(abc[0], math.Max(abc[1], abc[2]))
	lo := math.Min(abc[0], math.Min(abc[1], abc[2]))
	cm := 0.5 * (hi + lo)

	var m [3]float64
	for k := range abc {
		m[k] = 2 * (abc[k] - cm) / uDC
	}
	if span := 2 * (hi - lo) / uDC; span > 2 {
		for k := range m {
			m[k] *= 2 / span
		}
	}

	var d [3]float64
	for k := range m {
		d[k] = 0.5 * (1 + m[k])
	}
	return d, complex(uDC, 0) * transform.ABCToComplex(d)
}
