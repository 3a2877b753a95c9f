package control

import "github.com/san-kum/pendsim/internal/dynamo"

// None applies no torque.
type None struct{}

func NewNone() *None {
	return &None{}
}

func (n *None) Compute(x dynamo.State, step int) dynamo.Control {
	return 0
}
