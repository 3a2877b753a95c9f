// Package sim rolls the analytical model forward under a controller, with
// no reference simulator involved.
package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/goal"
)

// Model is the part of the analytical model a rollout needs.
type Model interface {
	Predict(x dynamo.State, u dynamo.Control) (dynamo.State, float32)
	Energy(x dynamo.State) float32
}

type Config struct {
	Steps         int
	StopAtGoal    bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Steps:         200,
		ValidateState: true,
	}
}

type Simulator struct {
	model      Model
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(m Model, controller dynamo.Controller) *Simulator {
	return &Simulator{
		model:      m,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*dynamo.Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &dynamo.Result{
		States:   make([]dynamo.State, 0, cfg.Steps+1),
		Controls: make([]dynamo.Control, 0, cfg.Steps),
		Costs:    make([]float32, 0, cfg.Steps),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
		GoalStep: -1,
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0
	result.States = append(result.States, x)
	if goal.Check(x) {
		result.GoalReached = true
		result.GoalStep = 0
	}

	initialEnergy := float64(s.model.Energy(x))

	for i := 0; i < cfg.Steps; i++ {
		if cfg.StopAtGoal && result.GoalReached {
			break
		}

		select {
		case <-ctx.Done():
			return result, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, ctx.Err())
		default:
		}

		u := s.controller.Compute(x, i)

		for _, m := range s.metrics {
			m.Observe(x, u, i)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, i)
		}

		next, cost := s.model.Predict(x, u)

		if cfg.ValidateState && !next.IsValid() {
			err := &dynamo.SimulationError{
				Step:    i,
				State:   x,
				Wrapped: fmt.Errorf("%w: %v", dynamo.ErrInvalidState, dynamo.SimError{Step: i, Message: "non-finite state"}),
			}
			result.Errors = append(result.Errors, err)
			break
		}

		x = next
		result.StepsTaken++
		result.TotalCost += float64(cost)

		result.States = append(result.States, x)
		result.Controls = append(result.Controls, u)
		result.Costs = append(result.Costs, cost)

		if !result.GoalReached && goal.Check(x) {
			result.GoalReached = true
			result.GoalStep = i + 1
		}
	}

	finalEnergy := float64(s.model.Energy(x))
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Metrics["total_cost"] = result.TotalCost

	return result, nil
}

func validateConfig(cfg Config) error {
	if cfg.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", cfg.Steps)
	}
	return nil
}
