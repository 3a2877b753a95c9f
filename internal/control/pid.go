package control

import (
	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/physics"
)

type PID struct {
	Kp       float32
	Ki       float32
	Kd       float32
	Target   float32
	Dt       float32
	Limit    float32 // zero means unclipped
	integral float32
	prevErr  float32
	first    bool
}

func NewPID(kp, ki, kd, target, dt float32) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		Dt:     dt,
		first:  true,
	}
}

func (p *PID) Compute(x dynamo.State, step int) dynamo.Control {
	err := physics.NormalizeAngle(p.Target - x.Theta())

	if p.first || p.Dt <= 0 {
		p.prevErr = err
		p.first = false
		return p.clip(p.Kp * err)
	}

	p.integral += err * p.Dt
	derivative := (err - p.prevErr) / p.Dt
	p.prevErr = err

	return p.clip(p.Kp*err + p.Ki*p.integral + p.Kd*derivative)
}

func (p *PID) clip(u float32) dynamo.Control {
	if p.Limit > 0 {
		if u > p.Limit {
			u = p.Limit
		} else if u < -p.Limit {
			u = -p.Limit
		}
	}
	return dynamo.Control(u)
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}

// GetParams reports the gains under the names the registry accepts.
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"kp":     float64(p.Kp),
		"ki":     float64(p.Ki),
		"kd":     float64(p.Kd),
		"target": float64(p.Target),
	}
}
