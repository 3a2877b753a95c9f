// Package goal generates and checks upright rest targets for the pendulum.
package goal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/pendsim/internal/dynamo"
)

// MinTurns and MaxTurns bound the whole number of revolutions a goal angle
// may sit at.
const (
	MinTurns = -3
	MaxTurns = 3
)

type Generator struct {
	rng *rand.Rand
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Next returns a target of 2πk rad at rest, k uniform in [MinTurns, MaxTurns].
func (g *Generator) Next() dynamo.State {
	k := MinTurns + g.rng.Intn(MaxTurns-MinTurns+1)
	return dynamo.State{float32(2 * math.Pi * float64(k)), 0}
}

// Check reports whether x is upright (1-cos θ within single-precision
// epsilon) and exactly at rest.
func Check(x dynamo.State) bool {
	return float32(1-math.Cos(float64(x.Theta()))) <= dynamo.Epsilon && x.ThetaDot() == 0
}

// ValidationError reports a malformed goal-checker input.
type ValidationError struct {
	Len int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("goal: state vector needs 2 entries (angle, angular velocity), got %d", e.Len)
}

func (e *ValidationError) Unwrap() error {
	return dynamo.ErrInvalidState
}

// CheckVector is Check for raw input whose shape is not yet trusted. Extra
// trailing entries are ignored.
func CheckVector(v []float32) (bool, error) {
	if len(v) < 2 {
		return false, &ValidationError{Len: len(v)}
	}
	return Check(dynamo.State{v[0], v[1]}), nil
}
