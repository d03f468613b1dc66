package metrics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
)

// Tracking is the RMS error between a reference channel and its actual
// channel, over the ticks at or after the settle time.
type Tracking struct {
	name   string
	ref    string
	actual string
	settle float64
	sq     []float64
}

func NewTracking(name, ref, actual string, settle float64) *Tracking {
	return &Tracking{name: name, ref: ref, actual: actual, settle: settle}
}

// NewSpeedTracking measures the electrical speed error in rad/s.
func NewSpeedTracking(settle float64) *Tracking {
	return NewTracking("speed_rms", fluxvec.ChanSpeedRef, fluxvec.ChanSpeed, settle)
}

// NewFluxTracking measures the flux magnitude error in Wb.
func NewFluxTracking(settle float64) *Tracking {
	return NewTracking("flux_rms", fluxvec.ChanFluxRef, fluxvec.ChanFlux, settle)
}

func (m *Tracking) Name() string { return m.name }

func (m *Tracking) Observe(s dynamo.Sample) {
	if s.Time < m.settle || s.Values == nil {
		return
	}
	e := s.Values[m.ref] - s.Values[m.actual]
	m.sq = append(m.sq, e*e)
}

func (m *Tracking) Value() float64 {
	if len(m.sq) == 0 {
		return 0
	}
	return math.Sqrt(stat.Mean(m.sq, nil))
}

func (m *Tracking) Reset() {
	m.sq = m.sq[:0]
}

// Ripple is the standard deviation of a channel after the settle time.
type Ripple struct {
	name    string
	channel string
	settle  float64
	values  []float64
}

// NewTorqueRipple measures the estimated torque ripple in N·m.
func NewTorqueRipple(settle float64) *Ripple {
	return &Ripple{name: "torque_ripple", channel: fluxvec.ChanTorque, settle: settle}
}

func (r *Ripple) Name() string { return r.name }

func (r *Ripple) Observe(s dynamo.Sample) {
	if s.Time < r.settle || s.Values == nil {
		return
	}
	r.values = append(r.values, s.Values[r.channel])
}

func (r *Ripple) Value() float64 {
	if len(r.values) < 2 {
		return 0
	}
	return stat.StdDev(r.values, nil)
}

func (r *Ripple) Reset() {
	r.values = r.values[:0]
}
