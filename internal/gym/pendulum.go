// Package gym is a Go port of the OpenAI gym Pendulum-v0 environment. It is
// the ground truth the analytical model is validated against, so it keeps
// gym's float64 numerics, clipping and reset distribution.
package gym

import (
	"math"
	"math/rand"
	"strconv"

	"github.com/san-kum/pendsim/internal/dynamo"
)

type Config struct {
	Gravity         float64 `yaml:"gravity"`
	Length          float64 `yaml:"length"`
	Mass            float64 `yaml:"mass"`
	Dt              float64 `yaml:"dt"`
	MaxSpeed        float64 `yaml:"max_speed"`
	MaxTorque       float64 `yaml:"max_torque"`
	MaxEpisodeSteps int     `yaml:"max_episode_steps"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:         10.0,
		Length:          1.0,
		Mass:            1.0,
		Dt:              0.05,
		MaxSpeed:        8,
		MaxTorque:       2.0,
		MaxEpisodeSteps: 200,
	}
}

// WithParams returns c with its physical constants taken from p.
func (c Config) WithParams(p dynamo.Params) Config {
	c.Gravity = widen(p.Gravity)
	c.Length = widen(p.Length)
	c.Mass = widen(p.Mass)
	c.Dt = widen(p.Dt)
	return c
}

// widen converts through the shortest decimal form, so 0.05 stays 0.05
// instead of becoming 0.05000000074505806.
func widen(v float32) float64 {
	f, err := strconv.ParseFloat(strconv.FormatFloat(float64(v), 'g', -1, 32), 64)
	if err != nil {
		return float64(v)
	}
	return f
}

// Box samples uniformly from [Low, High].
type Box struct {
	Low, High float32
	rng       *rand.Rand
}

func NewBox(low, high float32, seed int64) *Box {
	return &Box{Low: low, High: high, rng: rand.New(rand.NewSource(seed))}
}

func (b *Box) Sample() dynamo.Control {
	return dynamo.Control(b.Low + b.rng.Float32()*(b.High-b.Low))
}

// Pendulum owns its state; Step mutates it.
type Pendulum struct {
	cfg     Config
	rng     *rand.Rand
	actions *Box
	state   [2]float64
	steps   int
}

// NewPendulum seeds the reset distribution with seed and the action space
// with a stream derived from it, so the two never share draws.
func NewPendulum(cfg Config, seed int64) *Pendulum {
	torque := float32(cfg.MaxTorque)
	return &Pendulum{
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
		actions: NewBox(-torque, torque, seed^0x5deece66d),
	}
}

func (p *Pendulum) Config() Config { return p.cfg }

// Reset draws θ uniform in [-π, π] and θ̇ uniform in [-1, 1].
func (p *Pendulum) Reset() []float64 {
	high := [2]float64{math.Pi, 1}
	for i := range p.state {
		p.state[i] = (2*p.rng.Float64() - 1) * high[i]
	}
	p.steps = 0
	return p.observe()
}

func (p *Pendulum) State() []float64 {
	return []float64{p.state[0], p.state[1]}
}

// SetState places the pendulum at an explicit configuration.
func (p *Pendulum) SetState(th, thdot float64) {
	p.state = [2]float64{th, thdot}
}

func (p *Pendulum) ActionSpace() dynamo.ActionSpace { return p.actions }

// Step applies torque u and returns the observation, the reward for the
// pre-step state and whether the episode step limit was reached.
func (p *Pendulum) Step(u dynamo.Control) ([]float64, float64, bool) {
	th, thdot := p.state[0], p.state[1]
	g, m, l, dt := p.cfg.Gravity, p.cfg.Mass, p.cfg.Length, p.cfg.Dt

	torque := clip(float64(u), -p.cfg.MaxTorque, p.cfg.MaxTorque)
	costs := math.Pow(angleNormalize(th), 2) + 0.1*thdot*thdot + 0.001*torque*torque

	newthdot := thdot + (-3*g/(2*l)*math.Sin(th+math.Pi)+3.0/(m*l*l)*torque)*dt
	newth := th + newthdot*dt
	newthdot = clip(newthdot, -p.cfg.MaxSpeed, p.cfg.MaxSpeed)

	p.state = [2]float64{newth, newthdot}
	p.steps++

	done := p.cfg.MaxEpisodeSteps > 0 && p.steps >= p.cfg.MaxEpisodeSteps
	return p.observe(), -costs, done
}

func (p *Pendulum) observe() []float64 {
	th, thdot := p.state[0], p.state[1]
	return []float64{math.Cos(th), math.Sin(th), thdot}
}

func angleNormalize(x float64) float64 {
	a := math.Mod(x+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
