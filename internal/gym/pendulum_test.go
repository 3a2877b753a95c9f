package gym

import (
	"math"
	"testing"

	"github.com/san-kum/pendsim/internal/dynamo"
)

func TestResetDistribution(t *testing.T) {
	env := NewPendulum(DefaultConfig(), 1)

	for i := 0; i < 200; i++ {
		obs := env.Reset()
		x := env.State()
		if math.Abs(x[0]) > math.Pi || math.Abs(x[1]) > 1 {
			t.Fatalf("reset state %v out of range", x)
		}
		if len(obs) != 3 {
			t.Fatalf("observation has %d entries, want 3", len(obs))
		}
		if math.Abs(obs[0]-math.Cos(x[0])) > 1e-12 || math.Abs(obs[1]-math.Sin(x[0])) > 1e-12 || obs[2] != x[1] {
			t.Fatalf("observation %v does not match state %v", obs, x)
		}
	}
}

func TestSeededDeterminism(t *testing.T) {
	a := NewPendulum(DefaultConfig(), 99)
	b := NewPendulum(DefaultConfig(), 99)
	a.Reset()
	b.Reset()

	for i := 0; i < 50; i++ {
		ua, ub := a.ActionSpace().Sample(), b.ActionSpace().Sample()
		if ua != ub {
			t.Fatalf("step %d: samples differ %v vs %v", i, ua, ub)
		}
		_, ra, _ := a.Step(ua)
		_, rb, _ := b.Step(ub)
		if ra != rb || a.State()[0] != b.State()[0] || a.State()[1] != b.State()[1] {
			t.Fatalf("step %d: trajectories diverged", i)
		}
	}
}

func TestStepFormula(t *testing.T) {
	env := NewPendulum(DefaultConfig(), 0)
	env.SetState(0.5, -0.25)

	_, reward, done := env.Step(1.5)
	if done {
		t.Error("done after one step")
	}

	wantCost := 0.25 + 0.1*0.0625 + 0.001*2.25
	if math.Abs(reward+wantCost) > 1e-12 {
		t.Errorf("reward = %v, want %v", reward, -wantCost)
	}

	wantThdot := -0.25 + (-15*math.Sin(0.5+math.Pi)+3*1.5)*0.05
	wantTh := 0.5 + wantThdot*0.05
	x := env.State()
	if math.Abs(x[1]-wantThdot) > 1e-12 || math.Abs(x[0]-wantTh) > 1e-12 {
		t.Errorf("state = %v, want [%v %v]", x, wantTh, wantThdot)
	}
}

func TestClipping(t *testing.T) {
	env := NewPendulum(DefaultConfig(), 0)

	env.SetState(0, 0)
	_, reward, _ := env.Step(10)
	if math.Abs(reward+0.001*4) > 1e-12 {
		t.Errorf("torque not clipped in cost: reward %v", reward)
	}
	if x := env.State(); math.Abs(x[1]-6*0.05) > 1e-12 {
		t.Errorf("torque not clipped in dynamics: %v", x)
	}

	env.SetState(0, 7.99)
	env.Step(2)
	if x := env.State(); x[1] != 8 {
		t.Errorf("speed = %v, want clipped to 8", x[1])
	}
}

func TestEpisodeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxEpisodeSteps = 3
	env := NewPendulum(cfg, 0)
	env.Reset()

	for i := 1; i <= 3; i++ {
		_, _, done := env.Step(0)
		if done != (i == 3) {
			t.Errorf("step %d: done = %v", i, done)
		}
	}
}

func TestActionSpaceBounds(t *testing.T) {
	box := NewBox(-2, 2, 5)
	for i := 0; i < 1000; i++ {
		u := box.Sample()
		if u < -2 || u > 2 {
			t.Fatalf("sample %v out of [-2, 2]", u)
		}
	}
}

func TestWithParams(t *testing.T) {
	cfg := DefaultConfig().WithParams(dynamo.DefaultParams())
	if cfg.Dt != 0.05 || cfg.Gravity != 10 || cfg.Length != 1 || cfg.Mass != 1 {
		t.Errorf("WithParams = %+v", cfg)
	}
	if cfg.MaxTorque != 2 || cfg.MaxSpeed != 8 {
		t.Errorf("limits changed: %+v", cfg)
	}
}
