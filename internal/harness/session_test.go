package harness

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/gym"
	"github.com/san-kum/pendsim/internal/model"
)

type zeroSpace struct{}

func (zeroSpace) Sample() dynamo.Control { return 0 }

// wideEnv reports a three-entry state, which the model cannot match.
type wideEnv struct {
	x []float64
}

func (e *wideEnv) Reset() []float64 {
	e.x = []float64{0, 0, 0}
	return e.State()
}

func (e *wideEnv) State() []float64 {
	out := make([]float64, len(e.x))
	copy(out, e.x)
	return out
}

func (e *wideEnv) Step(u dynamo.Control) ([]float64, float64, bool) {
	e.x[2]++
	return e.State(), 0, false
}

func (e *wideEnv) ActionSpace() dynamo.ActionSpace { return zeroSpace{} }

func newModel(t *testing.T) *model.Model {
	t.Helper()
	m, err := model.New(dynamo.DefaultParams())
	if err != nil {
		t.Fatalf("model.New: %v", err)
	}
	return m
}

func gymFactory(seed int64) EnvFactory {
	return func(traj int) Env {
		return gym.NewPendulum(gym.DefaultConfig(), seed+int64(traj))
	}
}

func TestCompareZeroSteps(t *testing.T) {
	m := newModel(t)
	env := gym.NewPendulum(gym.DefaultConfig(), 3)

	var calls int
	rep, err := Compare(context.Background(), env, m, 0, WithObserver(ObserverFunc(func(StepResult) { calls++ })))
	if err != nil {
		t.Fatal(err)
	}
	if rep.TotalStateDiff != 0 || rep.TotalCostDiff != 0 {
		t.Errorf("totals = %v, %v; want 0, 0", rep.TotalStateDiff, rep.TotalCostDiff)
	}
	if !rep.Clean() || len(rep.Flagged) != 0 || calls != 0 {
		t.Errorf("zero-step run reported flags: %+v", rep)
	}
}

func TestBatchedMatchesSingle(t *testing.T) {
	m := newModel(t)
	const seed, steps = 11, 300

	single, err := Compare(context.Background(), gym.NewPendulum(gym.DefaultConfig(), seed), m, steps)
	if err != nil {
		t.Fatal(err)
	}
	batched, err := CompareBatched(context.Background(), gymFactory(seed), m, 1, steps)
	if err != nil {
		t.Fatal(err)
	}

	if single.TotalStateDiff != batched.TotalStateDiff || single.TotalCostDiff != batched.TotalCostDiff {
		t.Errorf("totals differ: single (%v, %v), batched (%v, %v)",
			single.TotalStateDiff, single.TotalCostDiff, batched.TotalStateDiff, batched.TotalCostDiff)
	}
	if single.StateFlags != batched.StateFlags || single.CostFlags != batched.CostFlags {
		t.Errorf("flag counts differ")
	}
	for i := range single.StateSeries {
		if single.StateSeries[i] != batched.StateSeries[i] || single.CostSeries[i] != batched.CostSeries[i] {
			t.Fatalf("step %d differs", i)
		}
	}
}

func TestModelAgreesWithReference(t *testing.T) {
	m := newModel(t)
	cfg := gym.DefaultConfig()
	cfg.MaxSpeed = math.Inf(1)

	rep, err := Compare(context.Background(), gym.NewPendulum(cfg, 5), m, 200)
	if err != nil {
		t.Fatal(err)
	}
	if !rep.Clean() {
		t.Errorf("unexpected flags: state=%d cost=%d first=%+v", rep.StateFlags, rep.CostFlags, rep.Flagged[0])
	}
	if rep.Steps != 200 || len(rep.StateSeries) != 200 {
		t.Errorf("steps = %d, series = %d", rep.Steps, len(rep.StateSeries))
	}
}

func TestShapeMismatchIsReported(t *testing.T) {
	m := newModel(t)

	rep, err := Compare(context.Background(), &wideEnv{}, m, 4)
	if err != nil {
		t.Fatalf("shape mismatch should not fail the run: %v", err)
	}
	if rep.ShapeMismatches != 4 || len(rep.Flagged) != 4 {
		t.Errorf("mismatches = %d, flagged = %d; want 4, 4", rep.ShapeMismatches, len(rep.Flagged))
	}
	// third entry counts 1, 2, 3, 4
	if rep.TotalStateDiff != 1+4+9+16 {
		t.Errorf("total state diff = %v, want 30", rep.TotalStateDiff)
	}
}

func TestInvalidArguments(t *testing.T) {
	m := newModel(t)
	ctx := context.Background()
	env := gym.NewPendulum(gym.DefaultConfig(), 0)

	cases := map[string]error{}
	_, cases["negative steps"] = Compare(ctx, env, m, -1)
	_, cases["nil env"] = Compare(ctx, nil, m, 1)
	_, cases["nil predictor"] = Compare(ctx, env, nil, 1)
	_, cases["zero batch"] = CompareBatched(ctx, gymFactory(0), m, 0, 1)
	_, cases["nil factory"] = CompareBatched(ctx, nil, m, 1, 1)
	_, cases["nil env from factory"] = CompareBatched(ctx, func(int) Env { return nil }, m, 1, 1)

	for name, err := range cases {
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%s: err = %v, want ErrInvalidArgument", name, err)
		}
	}
}

func TestContextCanceled(t *testing.T) {
	m := newModel(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := CompareBatched(ctx, gymFactory(1), m, 2, 5)
	if !errors.Is(err, dynamo.ErrContextCanceled) {
		t.Fatalf("err = %v, want ErrContextCanceled", err)
	}
	if rep == nil || rep.Steps != 0 {
		t.Errorf("partial report = %+v", rep)
	}
}

func TestSessionFinished(t *testing.T) {
	m := newModel(t)
	s, err := NewSingleSession(gym.NewPendulum(gym.DefaultConfig(), 0), m, 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Step(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !s.Done() {
		t.Error("session should be done")
	}
	if _, err := s.Step(context.Background()); !errors.Is(err, ErrFinished) {
		t.Errorf("err = %v, want ErrFinished", err)
	}
}

// failingPredictor rejects its first batch and then defers to the model.
type failingPredictor struct {
	*model.Model
	failed bool
}

func (p *failingPredictor) PredictBatch(b dynamo.Batch) ([]dynamo.State, []float32, error) {
	if !p.failed {
		p.failed = true
		return nil, nil, dynamo.ErrDimensionMismatch
	}
	return p.Model.PredictBatch(b)
}

type countingEnv struct {
	Env
	steps int
}

func (e *countingEnv) Step(u dynamo.Control) ([]float64, float64, bool) {
	e.steps++
	return e.Env.Step(u)
}

func TestSessionAbortsAfterPartialStep(t *testing.T) {
	envs := make([]*countingEnv, 2)
	factory := func(traj int) Env {
		envs[traj] = &countingEnv{Env: gym.NewPendulum(gym.DefaultConfig(), int64(traj))}
		return envs[traj]
	}
	s, err := NewBatchedSession(factory, &failingPredictor{Model: newModel(t)}, 2, 5)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.Step(context.Background()); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Fatalf("first step err = %v, want ErrDimensionMismatch", err)
	}
	if _, err := s.Step(context.Background()); !errors.Is(err, ErrAborted) {
		t.Fatalf("second step err = %v, want ErrAborted", err)
	}
	for b, env := range envs {
		if env.steps != 1 {
			t.Errorf("trajectory %d stepped %d times, want 1", b, env.steps)
		}
	}
	if done, _ := s.Progress(); done != 0 {
		t.Errorf("progress = %d, want 0", done)
	}
}

func TestBatchedZeroWorkersUsesDefault(t *testing.T) {
	m := newModel(t)
	errc := make(chan error, 1)
	go func() {
		_, err := CompareBatched(context.Background(), gymFactory(1), m, 2, 3, WithWorkers(0))
		errc <- err
	}()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("batched comparison with zero workers did not finish")
	}
}

func TestBatchedTrajectoriesAreIndependent(t *testing.T) {
	m := newModel(t)
	const steps = 50

	var alone []float64
	_, err := CompareBatched(context.Background(), gymFactory(21), m, 1, steps,
		WithObserver(ObserverFunc(func(r StepResult) { alone = append(alone, r.Reward) })))
	if err != nil {
		t.Fatal(err)
	}

	perTraj := make(map[int][]float64)
	rep, err := CompareBatched(context.Background(), gymFactory(21), m, 3, steps,
		WithObserver(ObserverFunc(func(r StepResult) { perTraj[r.Trajectory] = append(perTraj[r.Trajectory], r.Reward) })))
	if err != nil {
		t.Fatal(err)
	}

	if rep.Trajectories != 3 || len(rep.StateSeries) != 3*steps {
		t.Fatalf("trajectories = %d, series = %d", rep.Trajectories, len(rep.StateSeries))
	}
	for i := range alone {
		if perTraj[0][i] != alone[i] {
			t.Fatalf("trajectory 0 step %d changed when batched with others", i)
		}
	}
	if perTraj[1][0] == perTraj[0][0] && perTraj[2][0] == perTraj[0][0] {
		t.Error("trajectories should start from different states")
	}
}

func TestSquaredError(t *testing.T) {
	tests := []struct {
		name     string
		ref      []float64
		model    dynamo.State
		want     float64
		mismatch bool
	}{
		{"equal", []float64{1, 2}, dynamo.State{1, 2}, 0, false},
		{"offset", []float64{1, 2}, dynamo.State{0, 0}, 5, false},
		{"short ref", []float64{3}, dynamo.State{1, 1}, 5, true},
		{"long ref", []float64{0, 0, 2}, dynamo.State{0, 0}, 4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, mismatch := squaredError(tt.ref, tt.model)
			if got != tt.want || mismatch != tt.mismatch {
				t.Errorf("squaredError = (%v, %v), want (%v, %v)", got, mismatch, tt.want, tt.mismatch)
			}
		})
	}
}
