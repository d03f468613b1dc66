package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/fluxdrive/internal/fluxvec"
)

// Spectrum is a one-sided power spectrum.
type Spectrum struct {
	Frequencies []float64
	Power       []float64
}

// PowerSpectrum removes the mean, applies a Hann window and returns the
// one-sided power spectrum of data sampled at sampleRate Hz.
func PowerSpectrum(data []float64, sampleRate float64) Spectrum {
	n := len(data)
	if n < 2 || !(sampleRate > 0) {
		return Spectrum{}
	}

	x := make([]float64, n)
	mean := stat.Mean(data, nil)
	for i, v := range data {
		x[i] = v - mean
	}
	window.Apply(x, window.Hann)

	coeffs := fft.FFTReal(x)
	half := n/2 + 1
	s := Spectrum{
		Frequencies: make([]float64, half),
		Power:       make([]float64, half),
	}
	for k := 0; k < half; k++ {
		s.Frequencies[k] = float64(k) * sampleRate / float64(n)
		a := cmplx.Abs(coeffs[k]) / float64(n)
		s.Power[k] = a * a
	}
	return s
}

// DominantFrequency returns the frequency and power of the strongest bin
// above DC.
func DominantFrequency(s Spectrum) (float64, float64) {
	best, bestP := 0.0, 0.0
	for k := 1; k < len(s.Power); k++ {
		if s.Power[k] > bestP {
			best, bestP = s.Frequencies[k], s.Power[k]
		}
	}
	return best, bestP
}

// Channel extracts one named channel from telemetry, starting at time from.
func Channel(records []fluxvec.Record, name string, from float64) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if r.Time < from {
			continue
		}
		out = append(out, r.Values()[name])
	}
	return out
}
