// Package physics provides the analytical pendulum model.
//
// [Pendulum] implements [dynamo.System] (angular acceleration) and
// [dynamo.Hamiltonian] (mechanical energy), and carries the quadratic cost
// used by the reference environment. The discrete update itself lives in
// package integrators.
//
//	p := physics.NewPendulum(dynamo.DefaultParams())
//	cost := p.Cost(dynamo.State{math.Pi, 0}, 0)
package physics
