package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/pendsim/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Physics != dynamo.DefaultParams() {
		t.Errorf("physics = %+v", cfg.Physics)
	}
	if cfg.Harness.TimeSteps != 1000 {
		t.Errorf("time steps = %d, want 1000", cfg.Harness.TimeSteps)
	}
	if len(cfg.Harness.BatchSizes) != 2 || cfg.Harness.BatchSizes[0] != 1 || cfg.Harness.BatchSizes[1] != 2 {
		t.Errorf("batch sizes = %v, want [1 2]", cfg.Harness.BatchSizes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero mass", func(c *Config) { c.Physics.Mass = 0 }},
		{"negative steps", func(c *Config) { c.Harness.TimeSteps = -1 }},
		{"no batch sizes", func(c *Config) { c.Harness.BatchSizes = nil }},
		{"zero batch", func(c *Config) { c.Harness.BatchSizes = []int{1, 0} }},
		{"negative epsilon", func(c *Config) { c.Harness.Epsilon = -1 }},
		{"negative workers", func(c *Config) { c.Harness.Workers = -2 }},
		{"negative rollout", func(c *Config) { c.Rollout.Steps = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, dynamo.ErrParameterBounds) {
				t.Errorf("got %v, want ErrParameterBounds", err)
			}
		})
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pendsim.yaml")
	data := "physics:\n  gravity: 9.8\nharness:\n  time_steps: 50\n  batch_sizes: [4]\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Physics.Gravity != 9.8 {
		t.Errorf("gravity = %v", cfg.Physics.Gravity)
	}
	if cfg.Physics.Length != 1 || cfg.Physics.Dt != 0.05 {
		t.Errorf("unset physics fields lost their defaults: %+v", cfg.Physics)
	}
	if cfg.Harness.TimeSteps != 50 || len(cfg.Harness.BatchSizes) != 1 || cfg.Harness.BatchSizes[0] != 4 {
		t.Errorf("harness = %+v", cfg.Harness)
	}
	if cfg.Rollout.Controller != "none" {
		t.Errorf("controller = %q", cfg.Rollout.Controller)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("physics:\n  dt: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, dynamo.ErrParameterBounds) {
		t.Errorf("got %v, want ErrParameterBounds", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := GetPreset("heavy")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if back.Physics != cfg.Physics || back.Rollout.InitState != cfg.Rollout.InitState {
		t.Errorf("round trip changed config: %+v vs %+v", back, cfg)
	}
}

func TestGymConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Physics.Gravity = 9.81
	cfg.Env.MaxSpeed = 20

	g := cfg.GymConfig()
	if g.Gravity != 9.81 {
		t.Errorf("gravity = %v, want 9.81", g.Gravity)
	}
	if g.Dt != 0.05 || g.MaxSpeed != 20 || g.MaxTorque != 2 || g.MaxEpisodeSteps != 200 {
		t.Errorf("gym config = %+v", g)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("heavy")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Physics.Mass != 2 {
		t.Errorf("expected mass 2, got %v", cfg.Physics.Mass)
	}

	cfg.Harness.BatchSizes[0] = 99
	if GetPreset("heavy").Harness.BatchSizes[0] == 99 {
		t.Error("preset shares state with its copies")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValid(t *testing.T) {
	names := ListPresets()
	if len(names) != len(Presets) {
		t.Fatalf("listed %d of %d presets", len(names), len(Presets))
	}
	for _, name := range names {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestGetInitState(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rollout.InitState = InitStateConfig{Theta: 1.5, Omega: -2}
	if x := cfg.GetInitState(); x != (dynamo.State{1.5, -2}) {
		t.Errorf("init state = %v", x)
	}
}
