// Package analysis post-processes drive telemetry.
//
//   - [PowerSpectrum]: Hann-windowed spectrum of a sampled channel
//   - [DominantFrequency]: strongest non-DC component of a spectrum
//   - [NewLocus]: trajectory of two channels against each other
//
// # Torque Ripple
//
// The spectrum of the torque estimate after the speed has settled shows
// the ripple frequencies:
//
//	tau := analysis.Channel(result.Telemetry, fluxvec.ChanTorque)
//	s := analysis.PowerSpectrum(tau, 1/ts)
//	f, _ := analysis.DominantFrequency(s)
package analysis
