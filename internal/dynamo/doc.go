// Package dynamo provides the core types shared by the pendulum model, the
// reference simulator and the comparison harness.
//
//   - [State]: angle and angular velocity, single precision
//   - [Control]: applied torque
//   - [Params]: immutable physical constants (g, l, m, dt)
//   - [System]: angular acceleration of a dynamical system
//   - [Integrator]: discrete-time update of a [System]
//   - [Batch]: stacked independent rows for vectorized evaluation
//
// # Example
//
//	p := dynamo.DefaultParams()
//	pend := physics.NewPendulum(p)
//	next := integrators.NewSemiImplicitEuler().Step(pend, dynamo.State{0.5, 0}, 0, p.Dt)
//
// # Thread Safety
//
// All types here are plain values. [ParallelFor] is safe as long as fn writes
// only to its own index range.
package dynamo
