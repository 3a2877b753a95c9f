package control

import (
	"math/rand"

	"github.com/san-kum/pendsim/internal/dynamo"
)

// Random draws torque uniformly from [-Limit, Limit], like sampling the
// reference action space.
type Random struct {
	Limit float32
	rng   *rand.Rand
}

func NewRandom(limit float32, seed int64) *Random {
	return &Random{Limit: limit, rng: rand.New(rand.NewSource(seed))}
}

func (r *Random) Compute(x dynamo.State, step int) dynamo.Control {
	return dynamo.Control(-r.Limit + r.rng.Float32()*2*r.Limit)
}
