package control

import (
	"testing"

	"github.com/san-kum/pendsim/internal/dynamo"
)

func TestNone(t *testing.T) {
	ctrl := NewNone()
	if u := ctrl.Compute(dynamo.State{1.0, 2.0}, 0); u != 0 {
		t.Errorf("control should be 0, got %f", u)
	}
}

func TestManual(t *testing.T) {
	ctrl := NewManual(0.5)
	if u := ctrl.Compute(dynamo.State{}, 0); u != 0.5 {
		t.Errorf("got %f, want 0.5", u)
	}
	ctrl.SetControl(-1)
	if u := ctrl.Compute(dynamo.State{}, 1); u != -1 {
		t.Errorf("got %f, want -1", u)
	}
}

func TestRandomBoundsAndSeed(t *testing.T) {
	a, b := NewRandom(2, 9), NewRandom(2, 9)
	for i := 0; i < 500; i++ {
		ua, ub := a.Compute(dynamo.State{}, i), b.Compute(dynamo.State{}, i)
		if ua != ub {
			t.Fatalf("step %d: same seed gave %v and %v", i, ua, ub)
		}
		if ua < -2 || ua > 2 {
			t.Fatalf("step %d: %v outside [-2, 2]", i, ua)
		}
	}
}

func TestPID(t *testing.T) {
	ctrl := NewPID(10.0, 0.1, 5.0, 0.0, 0.05)
	u := ctrl.Compute(dynamo.State{1.0, 0.0}, 0)
	if u >= 0 {
		t.Error("PID should output negative control for positive angle")
	}

	ctrl.Limit = 2
	u = ctrl.Compute(dynamo.State{1.0, 0.0}, 1)
	if u != -2 {
		t.Errorf("clipped control = %v, want -2", u)
	}

	ctrl.Reset()
	if ctrl.integral != 0 || !ctrl.first {
		t.Error("reset did not clear state")
	}
}

func TestPIDWrapsError(t *testing.T) {
	ctrl := NewPID(1, 0, 0, 0, 0.05)
	// 2pi - 0.1 is 0.1 rad short of upright, so push positive
	u := ctrl.Compute(dynamo.State{2*3.14159265 - 0.1, 0}, 0)
	if u <= 0 || u > 0.11 {
		t.Errorf("control = %v, want ~0.1", u)
	}
}
