package metrics

import (
	"math"

	"github.com/san-kum/pendsim/internal/dynamo"
)

// ControlEffort is the root-mean-square torque over a rollout. It grows
// with the square of the torque, as the torque term of the step cost does.
type ControlEffort struct {
	sumSq   float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(_ dynamo.State, u dynamo.Control, _ int) {
	c.sumSq += float64(u) * float64(u)
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return math.Sqrt(c.sumSq / float64(c.samples))
}

func (c *ControlEffort) Reset() {
	c.sumSq = 0
	c.samples = 0
}
