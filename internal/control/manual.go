package control

import "github.com/san-kum/pendsim/internal/dynamo"

// ManualController applies whatever torque was last set.
type ManualController struct {
	U dynamo.Control
}

func NewManual(u dynamo.Control) *ManualController {
	return &ManualController{U: u}
}

// SetControl updates the applied torque.
func (c *ManualController) SetControl(u dynamo.Control) {
	c.U = u
}

func (c *ManualController) Compute(x dynamo.State, step int) dynamo.Control {
	return c.U
}
