// Package model wraps the pendulum transition and cost behind one callable
// that evaluates single rows or stacked batches.
package model

import (
	"fmt"
	"math"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/integrators"
	"github.com/san-kum/pendsim/internal/physics"
)

// minChunk is the smallest row range handed to a worker.
const minChunk = 256

// Model is immutable after New and safe for concurrent use.
type Model struct {
	params     dynamo.Params
	pend       *physics.Pendulum
	integrator dynamo.Integrator
	workers    int
}

type Option func(*Model)

// WithIntegrator replaces the semi-implicit Euler update.
func WithIntegrator(integ dynamo.Integrator) Option {
	return func(m *Model) { m.integrator = integ }
}

// WithWorkers bounds the goroutines used by PredictBatch.
func WithWorkers(n int) Option {
	return func(m *Model) { m.workers = n }
}

// ConstructionError reports a model that failed its construction-time
// prediction.
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("model: self-test failed: %s", e.Reason)
}

func (e *ConstructionError) Unwrap() error {
	return dynamo.ErrSelfTest
}

// New builds a model for p and runs one prediction on fixed sample data.
func New(p dynamo.Params, opts ...Option) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	m := &Model{
		params:     p,
		pend:       physics.NewPendulum(p),
		integrator: integrators.NewSemiImplicitEuler(),
		workers:    dynamo.DefaultWorkers,
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.selfTest(); err != nil {
		return nil, err
	}
	return m, nil
}

// SampleBatch is the fixed two-row input used by the construction self-test.
func SampleBatch() dynamo.Batch {
	return dynamo.Batch{
		States:   []dynamo.State{{1, 1}, {2, 2}},
		Controls: []dynamo.Control{1, 2},
	}
}

func (m *Model) selfTest() error {
	b := SampleBatch()
	next, costs, err := m.PredictBatch(b)
	if err != nil {
		return &ConstructionError{Reason: err.Error()}
	}
	if len(next) != b.Len() || len(costs) != b.Len() {
		return &ConstructionError{Reason: fmt.Sprintf("got %d states and %d costs for %d rows", len(next), len(costs), b.Len())}
	}

	for i := range b.States {
		if !next[i].IsValid() {
			return &ConstructionError{Reason: fmt.Sprintf("row %d: non-finite next state %v", i, next[i])}
		}
		if c := float64(costs[i]); math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			return &ConstructionError{Reason: fmt.Sprintf("row %d: invalid cost %v", i, costs[i])}
		}
		x, c := m.Predict(b.States[i], b.Controls[i])
		if x != next[i] || c != costs[i] {
			return &ConstructionError{Reason: fmt.Sprintf("row %d: batch output differs from single prediction", i)}
		}
	}
	return nil
}

func (m *Model) Params() dynamo.Params { return m.params }

func (m *Model) StateDim() int   { return 2 }
func (m *Model) ControlDim() int { return 1 }
func (m *Model) CostDim() int    { return 1 }

// Transition advances x by one timestep under torque u.
func (m *Model) Transition(x dynamo.State, u dynamo.Control) dynamo.State {
	return m.integrator.Step(m.pend, x, u, m.params.Dt)
}

// Cost is evaluated on the pre-step state.
func (m *Model) Cost(x dynamo.State, u dynamo.Control) float32 {
	return m.pend.Cost(x, u)
}

// Energy is the pendulum's mechanical energy at x.
func (m *Model) Energy(x dynamo.State) float32 {
	return m.pend.Energy(x)
}

// Predict returns the next state and the cost of applying u at x.
func (m *Model) Predict(x dynamo.State, u dynamo.Control) (dynamo.State, float32) {
	return m.Transition(x, u), m.Cost(x, u)
}

// PredictBatch evaluates every row of b independently.
func (m *Model) PredictBatch(b dynamo.Batch) ([]dynamo.State, []float32, error) {
	if err := b.Validate(); err != nil {
		return nil, nil, err
	}

	n := b.Len()
	next := make([]dynamo.State, n)
	costs := make([]float32, n)

	dynamo.ParallelFor(n, minChunk, m.workers, func(start, end int) {
		for i := start; i < end; i++ {
			next[i], costs[i] = m.Predict(b.States[i], b.Controls[i])
		}
	})

	return next, costs, nil
}
