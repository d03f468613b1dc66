// Package dynamo provides the simulation primitives shared by the plant
// model, the integrators and the closed-loop simulator.
//
//   - [State]: vector representing plant state
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical integrator interface
//   - [Metric], [Observer]: per-tick hooks of a simulation
//   - [Ensemble]: runs independent jobs concurrently
//
// # Thread Safety
//
// Systems and integrators hold scratch buffers and are NOT thread-safe.
// Every job of an [Ensemble] must build its own.
package dynamo
