// Package fluxvec implements stator-flux-vector control of synchronous
// motor drives in rotor coordinates.
//
// The loop is made of three parts:
//
//   - [Regulator]: proportional control of the flux magnitude and of the
//     torque, the latter through a corrected synchronous frequency
//   - [Observer]: the flux estimator, [SensoredObserver] being the variant
//     that uses measured rotor speed and position
//   - [Controller]: runs one fixed-period tick and returns the duty ratios
//
// The speed controller, the reference shaping, the modulator and the
// sensorless rotor observer are supplied through [Collaborators].
//
// # Usage
//
//	ctrl, err := fluxvec.New(params, fluxvec.Collaborators{...})
//	for {
//	    out := ctrl.Step(feedback)
//	    // apply out.Duty for out.SamplingPeriod
//	}
//
// # Numerical stability
//
// The observer uses explicit forward-Euler integration. It is accurate only
// while the sampling period is small compared with the time constants implied
// by R_s/L_d, R_s/L_q and the observer gain. Divergence is not detected here;
// it shows up as growing or NaN estimates in the telemetry.
//
// A Controller is not safe for concurrent use.
package fluxvec
