package harness

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/metrics"
)

// Session drives reference trajectories and the model in lockstep, one
// timestep per Step call. It is not safe for concurrent use.
type Session struct {
	mode     Mode
	envs     []Env
	pred     Predictor
	controls func(traj, step int) dynamo.Control
	steps    int
	t        int
	prev     [][]float64
	opts     options

	stateDiv *metrics.Divergence
	costDiv  *metrics.Divergence
	shape    int
	flagged  []StepResult
	err      error
}

// NewSingleSession resets env and prepares timeSteps comparisons. Controls
// are drawn from env's action space as the run goes.
func NewSingleSession(env Env, pred Predictor, timeSteps int, opts ...Option) (*Session, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: nil env", ErrInvalidArgument)
	}
	if err := checkArgs(pred, timeSteps); err != nil {
		return nil, err
	}

	env.Reset()
	s := newSession(ModeSingle, []Env{env}, pred, timeSteps, buildOptions(opts))
	s.controls = func(int, int) dynamo.Control {
		return env.ActionSpace().Sample()
	}
	return s, nil
}

// NewBatchedSession builds batchSize reference envs, resets them, then
// pre-samples batchSize*timeSteps controls from the first env's action space
// and lays them out row-major as a (batchSize, timeSteps) grid.
func NewBatchedSession(factory EnvFactory, pred Predictor, batchSize, timeSteps int, opts ...Option) (*Session, error) {
	if factory == nil {
		return nil, fmt.Errorf("%w: nil env factory", ErrInvalidArgument)
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size %d", ErrInvalidArgument, batchSize)
	}
	if err := checkArgs(pred, timeSteps); err != nil {
		return nil, err
	}

	envs := make([]Env, batchSize)
	for b := range envs {
		envs[b] = factory(b)
		if envs[b] == nil {
			return nil, fmt.Errorf("%w: factory returned nil env for trajectory %d", ErrInvalidArgument, b)
		}
		envs[b].Reset()
	}

	space := envs[0].ActionSpace()
	flat := make([]dynamo.Control, batchSize*timeSteps)
	for i := range flat {
		flat[i] = space.Sample()
	}
	grid := make([][]dynamo.Control, batchSize)
	for b := range grid {
		grid[b] = flat[b*timeSteps : (b+1)*timeSteps]
	}

	s := newSession(ModeBatched, envs, pred, timeSteps, buildOptions(opts))
	s.controls = func(traj, step int) dynamo.Control {
		return grid[traj][step]
	}
	return s, nil
}

func checkArgs(pred Predictor, timeSteps int) error {
	if pred == nil {
		return fmt.Errorf("%w: nil predictor", ErrInvalidArgument)
	}
	if timeSteps < 0 {
		return fmt.Errorf("%w: time steps %d", ErrInvalidArgument, timeSteps)
	}
	return nil
}

func newSession(mode Mode, envs []Env, pred Predictor, steps int, o options) *Session {
	prev := make([][]float64, len(envs))
	for b, env := range envs {
		prev[b] = env.State()
	}
	return &Session{
		mode:     mode,
		envs:     envs,
		pred:     pred,
		steps:    steps,
		prev:     prev,
		opts:     o,
		stateDiv: metrics.NewDivergence(o.eps),
		costDiv:  metrics.NewDivergence(o.eps),
	}
}

func (s *Session) Mode() Mode { return s.mode }

// Progress returns the completed and total timesteps.
func (s *Session) Progress() (int, int) { return s.t, s.steps }

func (s *Session) Done() bool { return s.t >= s.steps }

// Step advances every trajectory by one timestep.
func (s *Session) Step(ctx context.Context) ([]StepResult, error) {
	if s.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAborted, s.err)
	}
	if s.Done() {
		return nil, ErrFinished
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, err)
	}

	n := len(s.envs)
	results := make([]StepResult, n)
	us := make([]dynamo.Control, n)
	for b := range results {
		us[b] = s.controls(b, s.t)
		results[b] = StepResult{
			Trajectory: b,
			Step:       s.t,
			Control:    us[b],
			Prev:       s.prev[b],
		}
	}

	// Past this point some references may have moved; any failure ends the
	// session.
	if err := s.stepReference(ctx, results); err != nil {
		s.err = err
		return nil, err
	}
	if err := s.predict(results); err != nil {
		s.err = err
		return nil, err
	}

	for b := range results {
		r := &results[b]
		r.StateDiff, r.ShapeMismatch = squaredError(r.RefNext, r.ModelNext)
		if len(r.Prev) != 2 {
			r.ShapeMismatch = true
		}
		c := r.Reward + float64(r.Cost)
		r.CostDiff = c * c

		r.StateFlag = s.stateDiv.Add(r.StateDiff)
		r.CostFlag = s.costDiv.Add(r.CostDiff)
		if r.ShapeMismatch {
			s.shape++
		}
		if r.Flagged() {
			s.flagged = append(s.flagged, *r)
		}
		for _, obs := range s.opts.observers {
			obs.OnStep(*r)
		}
		s.prev[b] = r.RefNext
	}

	s.t++
	return results, nil
}

func (s *Session) stepReference(ctx context.Context, results []StepResult) error {
	step := func(b int) {
		r := &results[b]
		_, r.Reward, r.Done = s.envs[b].Step(r.Control)
		r.RefNext = s.envs[b].State()
	}

	if len(s.envs) == 1 {
		step(0)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.workers)
	for b := range s.envs {
		b := b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("%w: %v", dynamo.ErrContextCanceled, err)
			}
			step(b)
			return nil
		})
	}
	return g.Wait()
}

func (s *Session) predict(results []StepResult) error {
	if s.mode == ModeSingle {
		r := &results[0]
		r.ModelNext, r.Cost = s.pred.Predict(coerce(r.Prev), r.Control)
		return nil
	}

	batch := dynamo.Batch{
		States:   make([]dynamo.State, len(results)),
		Controls: make([]dynamo.Control, len(results)),
	}
	for b, r := range results {
		batch.States[b] = coerce(r.Prev)
		batch.Controls[b] = r.Control
	}

	next, costs, err := s.pred.PredictBatch(batch)
	if err != nil {
		return fmt.Errorf("harness: predict step %d: %w", s.t, err)
	}
	if len(next) != len(results) || len(costs) != len(results) {
		return fmt.Errorf("harness: predict step %d: %w: %d rows in, %d states and %d costs out",
			s.t, dynamo.ErrDimensionMismatch, len(results), len(next), len(costs))
	}
	for b := range results {
		results[b].ModelNext = next[b]
		results[b].Cost = costs[b]
	}
	return nil
}

// coerce narrows a reference state to the model's input. Missing entries
// read as zero; the caller flags the shape mismatch.
func coerce(v []float64) dynamo.State {
	if x, err := dynamo.StateFrom(v); err == nil {
		return x
	}
	var x dynamo.State
	for i := 0; i < len(x) && i < len(v); i++ {
		x[i] = float32(v[i])
	}
	return x
}

// squaredError sums (ref-model)^2 over the longer of the two vectors,
// treating missing entries as zero.
func squaredError(ref []float64, model dynamo.State) (float64, bool) {
	n := len(ref)
	if n < len(model) {
		n = len(model)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		var a, b float64
		if i < len(ref) {
			a = ref[i]
		}
		if i < len(model) {
			b = float64(model[i])
		}
		d := a - b
		sum += d * d
	}
	return sum, len(ref) != len(model)
}

// Run steps the session to completion.
func (s *Session) Run(ctx context.Context) (*Report, error) {
	for !s.Done() {
		if _, err := s.Step(ctx); err != nil {
			return s.Report(), err
		}
	}
	return s.Report(), nil
}

// Report snapshots the divergence accumulated so far.
func (s *Session) Report() *Report {
	flagged := make([]StepResult, len(s.flagged))
	copy(flagged, s.flagged)
	return &Report{
		Mode:            s.mode,
		Trajectories:    len(s.envs),
		Steps:           s.t,
		Epsilon:         s.opts.eps,
		TotalStateDiff:  s.stateDiv.Value(),
		TotalCostDiff:   s.costDiv.Value(),
		StateFlags:      s.stateDiv.Flagged(),
		CostFlags:       s.costDiv.Flagged(),
		ShapeMismatches: s.shape,
		StateSummary:    s.stateDiv.Summary(),
		CostSummary:     s.costDiv.Summary(),
		Flagged:         flagged,
		StateSeries:     s.stateDiv.Series(),
		CostSeries:      s.costDiv.Series(),
	}
}
