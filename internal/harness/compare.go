// Package harness validates the analytical model against a reference
// simulator by stepping both in lockstep and accumulating squared
// discrepancies in the next state and in reward versus cost.
//
// Divergence is a measurement, never an error: a step whose discrepancy
// reaches the epsilon threshold is flagged in the [Report] and passed to
// observers. Errors are reserved for invalid arguments and cancellation.
package harness

import "context"

// Compare runs single-step mode: timeSteps iterations on one reference env.
func Compare(ctx context.Context, env Env, pred Predictor, timeSteps int, opts ...Option) (*Report, error) {
	s, err := NewSingleSession(env, pred, timeSteps, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}

// CompareBatched runs batchSize independent trajectories of timeSteps each.
// Each trajectory gets its own env from factory; the model is evaluated once
// per timestep over the stacked batch.
func CompareBatched(ctx context.Context, factory EnvFactory, pred Predictor, batchSize, timeSteps int, opts ...Option) (*Report, error) {
	s, err := NewBatchedSession(factory, pred, batchSize, timeSteps, opts...)
	if err != nil {
		return nil, err
	}
	return s.Run(ctx)
}
