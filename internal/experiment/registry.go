package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pendsim/internal/control"
	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/integrators"
	"github.com/san-kum/pendsim/internal/metrics"
	"github.com/san-kum/pendsim/internal/physics"
)

type Registry struct {
	integrators map[string]func() dynamo.Integrator
	controllers map[string]func(map[string]float64) dynamo.Controller
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() dynamo.Integrator),
		controllers: make(map[string]func(map[string]float64) dynamo.Controller),
	}

	r.integrators["semi-implicit"] = func() dynamo.Integrator { return integrators.NewSemiImplicitEuler() }
	r.integrators["euler"] = func() dynamo.Integrator { return integrators.NewEuler() }

	r.controllers["none"] = func(params map[string]float64) dynamo.Controller {
		return control.NewNone()
	}
	r.controllers["manual"] = func(params map[string]float64) dynamo.Controller {
		return control.NewManual(dynamo.Control(params["torque"]))
	}
	r.controllers["random"] = func(params map[string]float64) dynamo.Controller {
		limit := params["limit"]
		if limit == 0 {
			limit = 2
		}
		return control.NewRandom(float32(limit), int64(params["seed"]))
	}
	r.controllers["pid"] = func(params map[string]float64) dynamo.Controller {
		dt := params["dt"]
		if dt == 0 {
			dt = float64(dynamo.DefaultParams().Dt)
		}
		pid := control.NewPID(float32(params["kp"]), float32(params["ki"]), float32(params["kd"]), float32(params["target"]), float32(dt))
		pid.Limit = float32(params["limit"])
		return pid
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, params map[string]float64) (dynamo.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn(params), nil
}

func (r *Registry) ListIntegrators() []string {
	return sortedKeys(r.integrators)
}

func (r *Registry) ListControllers() []string {
	return sortedKeys(r.controllers)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns fresh metric instances for a rollout of p.
func (r *Registry) DefaultMetrics(p dynamo.Params) []dynamo.Metric {
	pend := physics.NewPendulum(p)
	return []dynamo.Metric{
		metrics.NewEnergy(pend),
		metrics.NewEnergyDrift(pend),
		metrics.NewStability(10.0),
		metrics.NewControlEffort(),
	}
}
