package sim

import (
	"context"
	"sync"

	"github.com/san-kum/pendsim/internal/dynamo"
)

// Ensemble runs independent rollouts of one model concurrently. Controllers
// and metrics are stateful, so each run builds its own.
type Ensemble struct {
	model       Model
	controllers func(run int) dynamo.Controller
	metrics     func() []dynamo.Metric
	numRuns     int
}

func NewEnsemble(m Model, controllers func(run int) dynamo.Controller, metrics func() []dynamo.Metric, numRuns int) *Ensemble {
	return &Ensemble{model: m, controllers: controllers, metrics: metrics, numRuns: numRuns}
}

func (e *Ensemble) Run(ctx context.Context, x0 dynamo.State, cfg Config) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			s := New(e.model, e.controllers(idx))
			if e.metrics != nil {
				for _, m := range e.metrics() {
					s.AddMetric(m)
				}
			}

			results[idx], errs[idx] = s.Run(ctx, x0, cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
