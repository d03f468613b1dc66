package metrics

import (
	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
)

// Energy integrates the electrical input power 1.5 Re(u conj(i)) over the
// run, in joules, from the controller's realized voltage and current.
type Energy struct {
	name    string
	total   float64
	last    float64
	prevT   float64
	samples int
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(s dynamo.Sample) {
	if s.Values == nil {
		return
	}
	v := s.Values
	p := 1.5 * (v[fluxvec.ChanVoltageD]*v[fluxvec.ChanCurrentD] + v[fluxvec.ChanVoltageQ]*v[fluxvec.ChanCurrentQ])
	if e.samples > 0 {
		e.total += e.last * (s.Time - e.prevT)
	}
	e.last = p
	e.prevT = s.Time
	e.samples++
}

func (e *Energy) Value() float64 {
	return e.total
}

func (e *Energy) Reset() {
	e.total = 0
	e.last = 0
	e.prevT = 0
	e.samples = 0
}
