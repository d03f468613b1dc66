package metrics

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/fluxdrive/internal/dynamo"
	"github.com/san-kum/fluxdrive/internal/transform"
)

// Modulation is the mean modulation index of the duty ratios: the length of
// their space vector relative to the linear-range limit 1/√3. Zero-sequence
// injection does not change it; values above 1 mean overmodulation.
type Modulation struct {
	name    string
	sum     float64
	peak    float64
	samples int
}

func NewModulation() *Modulation {
	return &Modulation{name: "modulation"}
}

func (m *Modulation) Name() string {
	return m.name
}

func (m *Modulation) Observe(s dynamo.Sample) {
	if len(s.Control) != 3 {
		return
	}
	idx := math.Sqrt(3) * cmplx.Abs(transform.ABCToComplex([3]float64{s.Control[0], s.Control[1], s.Control[2]}))
	m.sum += idx
	m.peak = math.Max(m.peak, idx)
	m.samples++
}

func (m *Modulation) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

// Peak is the largest index seen.
func (m *Modulation) Peak() float64 { return m.peak }

func (m *Modulation) Reset() {
	m.sum, m.peak = 0, 0
	m.samples = 0
}
