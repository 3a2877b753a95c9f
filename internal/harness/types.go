package harness

import (
	"errors"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/metrics"
)

var (
	// ErrFinished is returned by Session.Step once every timestep has run.
	ErrFinished = errors.New("harness: session finished")

	// ErrInvalidArgument indicates a bad step count, batch size or collaborator.
	ErrInvalidArgument = errors.New("harness: invalid argument")

	// ErrAborted is returned by Session.Step after an earlier step failed
	// part way, leaving the trajectories out of lockstep.
	ErrAborted = errors.New("harness: session aborted")
)

// Env is the reference simulator. It owns and mutates its own state.
type Env interface {
	Reset() []float64
	State() []float64
	Step(u dynamo.Control) (obs []float64, reward float64, done bool)
	ActionSpace() dynamo.ActionSpace
}

// EnvFactory builds the reference simulator for one trajectory.
type EnvFactory func(trajectory int) Env

// Predictor is the analytical model under test.
type Predictor interface {
	Predict(x dynamo.State, u dynamo.Control) (dynamo.State, float32)
	PredictBatch(b dynamo.Batch) ([]dynamo.State, []float32, error)
}

type Mode string

const (
	ModeSingle  Mode = "single"
	ModeBatched Mode = "batched"
)

// StepResult is one lockstep comparison between reference and model.
type StepResult struct {
	Trajectory    int            `json:"trajectory"`
	Step          int            `json:"step"`
	Control       dynamo.Control `json:"control"`
	Prev          []float64      `json:"prev"`
	RefNext       []float64      `json:"ref_next"`
	ModelNext     dynamo.State   `json:"model_next"`
	Reward        float64        `json:"reward"`
	Cost          float32        `json:"cost"`
	StateDiff     float64        `json:"state_diff"`
	CostDiff      float64        `json:"cost_diff"`
	StateFlag     bool           `json:"state_flag"`
	CostFlag      bool           `json:"cost_flag"`
	ShapeMismatch bool           `json:"shape_mismatch"`
	Done          bool           `json:"done"`
}

func (r StepResult) Flagged() bool {
	return r.StateFlag || r.CostFlag || r.ShapeMismatch
}

// Report summarizes a comparison run.
type Report struct {
	Mode            Mode            `json:"mode"`
	Trajectories    int             `json:"trajectories"`
	Steps           int             `json:"steps"`
	Epsilon         float64         `json:"epsilon"`
	TotalStateDiff  float64         `json:"total_state_diff"`
	TotalCostDiff   float64         `json:"total_cost_diff"`
	StateFlags      int             `json:"state_flags"`
	CostFlags       int             `json:"cost_flags"`
	ShapeMismatches int             `json:"shape_mismatches"`
	StateSummary    metrics.Summary `json:"state_summary"`
	CostSummary     metrics.Summary `json:"cost_summary"`
	Flagged         []StepResult    `json:"flagged"`
	StateSeries     []float64       `json:"state_series"`
	CostSeries      []float64       `json:"cost_series"`
}

// Clean reports whether no step was flagged.
func (r *Report) Clean() bool {
	return r.StateFlags == 0 && r.CostFlags == 0 && r.ShapeMismatches == 0
}

type Observer interface {
	OnStep(r StepResult)
}

type ObserverFunc func(r StepResult)

func (f ObserverFunc) OnStep(r StepResult) { f(r) }

type options struct {
	eps       float64
	observers []Observer
	workers   int
}

type Option func(*options)

// WithEpsilon sets the flag threshold; the default is float32 epsilon.
func WithEpsilon(eps float64) Option {
	return func(o *options) { o.eps = eps }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithWorkers bounds concurrent reference steps in batched mode. Values
// below one fall back to dynamo.DefaultWorkers.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func buildOptions(opts []Option) options {
	o := options{
		eps:     float64(dynamo.Epsilon),
		workers: dynamo.DefaultWorkers,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers <= 0 {
		o.workers = dynamo.DefaultWorkers
	}
	return o
}
