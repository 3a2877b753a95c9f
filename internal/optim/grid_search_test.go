package optim

import (
	"context"
	"testing"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/experiment"
)

func manualAt(x0 dynamo.State) func(map[string]float64) (*experiment.Experiment, error) {
	reg := experiment.NewRegistry()
	return func(params map[string]float64) (*experiment.Experiment, error) {
		exp := experiment.New(experiment.Config{
			Params:           dynamo.DefaultParams(),
			Integrator:       "semi-implicit",
			Controller:       "manual",
			ControllerParams: params,
			InitState:        x0,
			Steps:            20,
		})
		return exp, exp.Setup(reg)
	}
}

func TestGridSearchFindsZeroTorqueAtRest(t *testing.T) {
	gs := NewGridSearch([]string{"torque"}, [][]float64{{-1, -0.5, 0, 0.5, 1}})

	best, val, err := gs.Search(context.Background(), manualAt(dynamo.State{0, 0}), "total_cost")
	if err != nil {
		t.Fatal(err)
	}
	if best["torque"] != 0 {
		t.Errorf("best torque = %v, want 0", best["torque"])
	}
	if val != 0 {
		t.Errorf("best cost = %v, want 0", val)
	}
}

func TestGridSearchVisitsEveryPoint(t *testing.T) {
	gs := NewGridSearch([]string{"torque", "unused"}, [][]float64{{0, 1}, {1, 2, 3}})

	visits := 0
	build := manualAt(dynamo.State{0.5, 0})
	_, _, err := gs.Search(context.Background(), func(p map[string]float64) (*experiment.Experiment, error) {
		visits++
		return build(p)
	}, "total_cost")
	if err != nil {
		t.Fatal(err)
	}
	if visits != 6 {
		t.Errorf("visited %d points, want 6", visits)
	}
}

func TestGridSearchErrors(t *testing.T) {
	gs := NewGridSearch([]string{"torque"}, nil)
	if _, _, err := gs.Search(context.Background(), manualAt(dynamo.State{}), "total_cost"); err == nil {
		t.Error("expected error for mismatched ranges")
	}

	gs = NewGridSearch([]string{"torque"}, [][]float64{{0}})
	if _, _, err := gs.Search(context.Background(), manualAt(dynamo.State{}), "no_such_metric"); err == nil {
		t.Error("expected error when the metric is never produced")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := gs.Search(ctx, manualAt(dynamo.State{}), "total_cost"); err == nil {
		t.Error("expected error for canceled context")
	}
}

func TestLinspace(t *testing.T) {
	got := Linspace(0, 10, 5)
	want := []float64{0, 2.5, 5, 7.5, 10}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("linspace = %v, want %v", got, want)
		}
	}
	if len(Linspace(3, 4, 1)) != 1 {
		t.Error("n=1 should give one point")
	}
}
