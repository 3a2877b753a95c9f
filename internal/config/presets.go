package config

import "sort"

// Presets are built on DefaultConfig; each overrides a few fields.
var Presets = map[string]*Config{
	"pendulum-v0": DefaultConfig(),
	"heavy": func() *Config {
		c := DefaultConfig()
		c.Physics.Mass = 2
		c.Rollout.InitState.Theta = 2.5
		return c
	}(),
	"long": func() *Config {
		c := DefaultConfig()
		c.Physics.Length = 2
		c.Harness.TimeSteps = 5000
		c.Env.MaxEpisodeSteps = 5000
		return c
	}(),
	"fine": func() *Config {
		c := DefaultConfig()
		c.Physics.Dt = 0.01
		c.Harness.TimeSteps = 5000
		c.Rollout.Steps = 1000
		return c
	}(),
	"swing-up": func() *Config {
		c := DefaultConfig()
		c.Rollout.Controller = "pid"
		c.Rollout.InitState.Theta = 3.0
		c.Rollout.StopAtGoal = true
		c.Rollout.Steps = 400
		return c
	}(),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
