package physics

import (
	"math"

	"github.com/san-kum/pendsim/internal/dynamo"
)

// Cost weights on the squared angle, angular velocity and torque.
const (
	AngleWeight    float32 = 1.0
	VelocityWeight float32 = 0.1
	TorqueWeight   float32 = 0.001
)

// Pendulum is a uniform rod swinging about one end. Angle zero is upright.
type Pendulum struct {
	params dynamo.Params
}

func NewPendulum(p dynamo.Params) *Pendulum {
	return &Pendulum{params: p}
}

func (p *Pendulum) Params() dynamo.Params { return p.params }

func (p *Pendulum) StateDim() int {
	return 2
}

func (p *Pendulum) ControlDim() int {
	return 1
}

// Accel returns -(3g)/(2l)·sin(θ+π) + 3/(m·l²)·u.
func (p *Pendulum) Accel(x dynamo.State, u dynamo.Control) float32 {
	g, l, m := p.params.Gravity, p.params.Length, p.params.Mass
	// explicit conversions round each term, so no fused multiply-add
	gravity := float32(-3 * g / (2 * l) * shiftedSin(x.Theta()))
	torque := float32(3 / (m * l * l) * float32(u))
	return gravity + torque
}

// shiftedSin evaluates sin(θ+π) as -sin(θ) so θ=0 maps to exactly zero.
func shiftedSin(theta float32) float32 {
	return float32(-math.Sin(float64(theta)))
}

// Cost is the quadratic penalty the reference environment reports as -reward.
func (p *Pendulum) Cost(x dynamo.State, u dynamo.Control) float32 {
	th := NormalizeAngle(x.Theta())
	thdot := x.ThetaDot()
	uu := float32(u)
	return float32(AngleWeight*th*th) + float32(VelocityWeight*thdot*thdot) + float32(TorqueWeight*uu*uu)
}

// NormalizeAngle wraps theta with a floored modulo: ((θ+π) mod 2π) − π.
// The result lies in [−π, π) once rounded to float32; an input just below
// π that would round up to float32(π) maps to −float32(π), the same angle.
func NormalizeAngle(theta float32) float32 {
	a := math.Mod(float64(theta)+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	n := float32(a - math.Pi)
	if n >= math.Pi {
		n = -n
	}
	return n
}

// Energy of the rod about its pivot with the centre of mass at l/2.
func (p *Pendulum) Energy(x dynamo.State) float32 {
	g, l, m := p.params.Gravity, p.params.Length, p.params.Mass
	omega := x.ThetaDot()
	ke := m * l * l * omega * omega / 6
	pe := m * g * l / 2 * float32(math.Cos(float64(x.Theta())))
	return ke + pe
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    float64(p.params.Mass),
		"length":  float64(p.params.Length),
		"gravity": float64(p.params.Gravity),
		"dt":      float64(p.params.Dt),
	}
}
