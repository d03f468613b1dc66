package metrics

import (
	"math"

	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/fluxvec"
)

// Stability is the share of ticks on which the drive state is finite and the
// flux estimate stays within fluxBound. A diverging observer drives it
// towards zero.
type Stability struct {
	fluxBound float64
	good      int
	ticks     int
	firstBad  float64
}

func NewStability(fluxBound float64) *Stability {
	return &Stability{fluxBound: fluxBound, firstBad: math.NaN()}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(sample dynamo.Sample) {
	s.ticks++
	if s.healthy(sample) {
		s.good++
	} else if math.IsNaN(s.firstBad) {
		s.firstBad = sample.Time
	}
}

func (s *Stability) healthy(sample dynamo.Sample) bool {
	if !sample.State.IsValid() {
		return false
	}
	psi, ok := sample.Values[fluxvec.ChanFlux]
	return !ok || math.Abs(psi) <= s.fluxBound
}

func (s *Stability) Value() float64 {
	if s.ticks == 0 {
		return 1
	}
	return float64(s.good) / float64(s.ticks)
}

// FirstViolation is the time of the first unhealthy tick, or NaN.
func (s *Stability) FirstViolation() float64 { return s.firstBad }

func (s *Stability) Reset() {
	s.good, s.ticks = 0, 0
	s.firstBad = math.NaN()
}
