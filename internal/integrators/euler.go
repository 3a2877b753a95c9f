package integrators

import "github.com/san-kum/pendsim/internal/dynamo"

// SemiImplicitEuler updates velocity first and advances the angle with the
// new velocity. This is the discretization Pendulum-v0 uses.
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (e *SemiImplicitEuler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, dt float32) dynamo.State {
	thdot := x.ThetaDot() + float32(dyn.Accel(x, u)*dt)
	th := x.Theta() + float32(thdot*dt)
	return dynamo.State{th, thdot}
}

// Euler is the explicit forward update; the angle moves with the old velocity.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, dt float32) dynamo.State {
	thdot := x.ThetaDot() + float32(dyn.Accel(x, u)*dt)
	th := x.Theta() + float32(x.ThetaDot()*dt)
	return dynamo.State{th, thdot}
}
