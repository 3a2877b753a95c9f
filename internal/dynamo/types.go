package dynamo

import (
	"fmt"
	"math"
)

// Epsilon is the single-precision machine epsilon (2^-23).
const Epsilon float32 = 1.1920929e-07

// State is the pendulum configuration: angle and angular velocity.
type State [2]float32

func (s State) Theta() float32    { return s[0] }
func (s State) ThetaDot() float32 { return s[1] }

func (s State) IsValid() bool {
	for _, v := range s {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Float64 widens the state for comparison against float64 simulators.
func (s State) Float64() []float64 {
	return []float64{float64(s[0]), float64(s[1])}
}

// StateFrom narrows a raw vector into a State. It fails unless v has exactly
// two entries.
func StateFrom(v []float64) (State, error) {
	if len(v) != 2 {
		return State{}, fmt.Errorf("%w: got %d entries, want 2", ErrDimensionMismatch, len(v))
	}
	return State{float32(v[0]), float32(v[1])}, nil
}

// Control is the torque applied at the pivot.
type Control float32

// System gives the angular acceleration for a state and torque.
type System interface {
	Accel(x State, u Control) float32
}

type Hamiltonian interface {
	Energy(x State) float32
}

type Integrator interface {
	Step(dyn System, x State, u Control, dt float32) State
}

// ActionSpace draws admissible controls.
type ActionSpace interface {
	Sample() Control
}

type Controller interface {
	Compute(x State, step int) Control
}

type Metric interface {
	Name() string
	Observe(x State, u Control, step int)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, step int)
}

// Params holds the physical constants of the pendulum. It is a value type:
// a model copies it at construction and never changes it afterwards.
type Params struct {
	Gravity float32 `yaml:"gravity" json:"gravity"`
	Length  float32 `yaml:"length" json:"length"`
	Mass    float32 `yaml:"mass" json:"mass"`
	Dt      float32 `yaml:"dt" json:"dt"`
}

// DefaultParams returns the constants used by gym's Pendulum-v0.
func DefaultParams() Params {
	return Params{
		Gravity: 10.0,
		Length:  1.0,
		Mass:    1.0,
		Dt:      0.05,
	}
}

func (p Params) Validate() error {
	check := func(name string, v float32) error {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || v <= 0 {
			return fmt.Errorf("%w: %s=%v", ErrParameterBounds, name, v)
		}
		return nil
	}
	if err := check("gravity", p.Gravity); err != nil {
		return err
	}
	if err := check("length", p.Length); err != nil {
		return err
	}
	if err := check("mass", p.Mass); err != nil {
		return err
	}
	return check("dt", p.Dt)
}

// Batch stacks independent (state, control) rows for vectorized evaluation.
type Batch struct {
	States   []State
	Controls []Control
}

func (b Batch) Len() int { return len(b.States) }

func (b Batch) Validate() error {
	if len(b.States) != len(b.Controls) {
		return fmt.Errorf("%w: %d states, %d controls", ErrDimensionMismatch, len(b.States), len(b.Controls))
	}
	return nil
}

type Result struct {
	States      []State
	Controls    []Control
	Costs       []float32
	Metrics     map[string]float64
	StepsTaken  int
	GoalReached bool
	GoalStep    int
	EnergyDrift float64
	TotalCost   float64
	Errors      []error
}

type SimError struct {
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d: %s", e.Step, e.Message)
}
