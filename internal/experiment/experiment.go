// Package experiment assembles a model rollout from registered names.
package experiment

import (
	"context"
	"fmt"
	"maps"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/model"
	"github.com/san-kum/pendsim/internal/physics"
	"github.com/san-kum/pendsim/internal/sim"
)

type Config struct {
	Params           dynamo.Params
	Integrator       string
	Controller       string
	ControllerParams map[string]float64
	InitState        dynamo.State
	Steps            int
	StopAtGoal       bool
}

type Experiment struct {
	cfg        Config
	model      *model.Model
	controller dynamo.Controller
	simulator  *sim.Simulator
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup builds the model, controller and metrics from the registry.
func (e *Experiment) Setup(r *Registry) error {
	integ, err := r.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}
	ctrl, err := r.GetController(e.cfg.Controller, e.cfg.ControllerParams)
	if err != nil {
		return err
	}
	m, err := model.New(e.cfg.Params, model.WithIntegrator(integ))
	if err != nil {
		return fmt.Errorf("build model: %w", err)
	}

	e.model = m
	e.controller = ctrl
	e.simulator = sim.New(m, ctrl)
	for _, metric := range r.DefaultMetrics(e.cfg.Params) {
		e.simulator.AddMetric(metric)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	return e.simulator.Run(ctx, e.cfg.InitState, sim.Config{
		Steps:         e.cfg.Steps,
		StopAtGoal:    e.cfg.StopAtGoal,
		ValidateState: true,
	})
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Model() *model.Model {
	return e.model
}

type paramReporter interface {
	GetParams() map[string]float64
}

// Params lists the physical constants and, for controllers that expose
// them, the controller gains.
func (e *Experiment) Params() map[string]float64 {
	out := physics.NewPendulum(e.cfg.Params).GetParams()
	if pr, ok := e.controller.(paramReporter); ok {
		maps.Copy(out, pr.GetParams())
	}
	return out
}
