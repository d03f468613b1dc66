// Package control provides the components that surround the flux and
// torque loop of a synchronous motor drive:
//
//   - [SpeedController]: two-degree-of-freedom PI speed controller
//   - [FluxTorqueReference]: flux reference and torque limiting
//   - [PWM]: duty ratios, voltage limiting and realized voltage
//   - [SensorlessObserver]: rotor speed and position from electrical
//     measurements
//   - [StepProfile]: piecewise-constant speed reference
//
// # Usage
//
//	speed, _ := control.NewSpeedController(params.Motor.J, params.AlphaS, 21, params.Ts)
//	ctrl, _ := fluxvec.New(params, fluxvec.Collaborators{Speed: speed, ...})
//
// Controllers implementing GetParams/SetParam support live tuning.
package control
