package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pendsim/internal/dynamo"
	"github.com/san-kum/pendsim/internal/gym"
)

const (
	DefaultTimeSteps   = 1000
	DefaultRolloutSize = 200
	DefaultTheta       = 0.5
	DefaultKp          = 10.0
	DefaultKi          = 0.1
	DefaultKd          = 5.0
)

type Config struct {
	Physics dynamo.Params `yaml:"physics"`
	Env     EnvConfig     `yaml:"env"`
	Harness HarnessConfig `yaml:"harness"`
	Rollout RolloutConfig `yaml:"rollout"`
}

// EnvConfig holds the reference simulator's limits. Its physical constants
// always come from Physics.
type EnvConfig struct {
	MaxSpeed        float64 `yaml:"max_speed"`
	MaxTorque       float64 `yaml:"max_torque"`
	MaxEpisodeSteps int     `yaml:"max_episode_steps"`
}

type HarnessConfig struct {
	TimeSteps  int     `yaml:"time_steps"`
	BatchSizes []int   `yaml:"batch_sizes"`
	Seed       int64   `yaml:"seed"`
	Epsilon    float64 `yaml:"epsilon"`
	Workers    int     `yaml:"workers"`
}

type RolloutConfig struct {
	Steps            int              `yaml:"steps"`
	Integrator       string           `yaml:"integrator"`
	Controller       string           `yaml:"controller"`
	StopAtGoal       bool             `yaml:"stop_at_goal"`
	InitState        InitStateConfig  `yaml:"init_state"`
	ControllerParams ControllerConfig `yaml:"controller_params"`
}

type InitStateConfig struct {
	Theta float64 `yaml:"theta"`
	Omega float64 `yaml:"omega"`
}

type ControllerConfig struct {
	Kp     float64 `yaml:"kp"`
	Ki     float64 `yaml:"ki"`
	Kd     float64 `yaml:"kd"`
	Target float64 `yaml:"target"`
	Torque float64 `yaml:"torque"`
	Limit  float64 `yaml:"limit"`
}

func DefaultConfig() *Config {
	env := gym.DefaultConfig()
	return &Config{
		Physics: dynamo.DefaultParams(),
		Env: EnvConfig{
			MaxSpeed:        env.MaxSpeed,
			MaxTorque:       env.MaxTorque,
			MaxEpisodeSteps: env.MaxEpisodeSteps,
		},
		Harness: HarnessConfig{
			TimeSteps:  DefaultTimeSteps,
			BatchSizes: []int{1, 2},
			Epsilon:    float64(dynamo.Epsilon),
			Workers:    dynamo.DefaultWorkers,
		},
		Rollout: RolloutConfig{
			Steps:      DefaultRolloutSize,
			Integrator: "semi-implicit",
			Controller: "none",
			InitState: InitStateConfig{
				Theta: DefaultTheta,
			},
			ControllerParams: ControllerConfig{
				Kp:    DefaultKp,
				Ki:    DefaultKi,
				Kd:    DefaultKd,
				Limit: env.MaxTorque,
			},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.Physics.Validate(); err != nil {
		return err
	}
	if c.Harness.TimeSteps < 0 {
		return fmt.Errorf("%w: time_steps %d", dynamo.ErrParameterBounds, c.Harness.TimeSteps)
	}
	if len(c.Harness.BatchSizes) == 0 {
		return fmt.Errorf("%w: batch_sizes is empty", dynamo.ErrParameterBounds)
	}
	for _, b := range c.Harness.BatchSizes {
		if b < 1 {
			return fmt.Errorf("%w: batch size %d", dynamo.ErrParameterBounds, b)
		}
	}
	if c.Harness.Epsilon < 0 {
		return fmt.Errorf("%w: epsilon %g", dynamo.ErrParameterBounds, c.Harness.Epsilon)
	}
	if c.Harness.Workers < 0 {
		return fmt.Errorf("%w: workers %d", dynamo.ErrParameterBounds, c.Harness.Workers)
	}
	if c.Rollout.Steps < 0 {
		return fmt.Errorf("%w: rollout steps %d", dynamo.ErrParameterBounds, c.Rollout.Steps)
	}
	return nil
}

// GymConfig is the reference simulator configuration matching Physics.
func (c *Config) GymConfig() gym.Config {
	g := gym.DefaultConfig().WithParams(c.Physics)
	g.MaxSpeed = c.Env.MaxSpeed
	g.MaxTorque = c.Env.MaxTorque
	g.MaxEpisodeSteps = c.Env.MaxEpisodeSteps
	return g
}

func (c *Config) GetInitState() dynamo.State {
	return dynamo.State{float32(c.Rollout.InitState.Theta), float32(c.Rollout.InitState.Omega)}
}

func (c *Config) GetControllerParams() map[string]float64 {
	return map[string]float64{
		"kp":     c.Rollout.ControllerParams.Kp,
		"ki":     c.Rollout.ControllerParams.Ki,
		"kd":     c.Rollout.ControllerParams.Kd,
		"target": c.Rollout.ControllerParams.Target,
		"torque": c.Rollout.ControllerParams.Torque,
		"limit":  c.Rollout.ControllerParams.Limit,
		"dt":     float64(c.Physics.Dt),
		"seed":   float64(c.Harness.Seed),
	}
}

func (c *Config) clone() *Config {
	out := *c
	out.Harness.BatchSizes = append([]int(nil), c.Harness.BatchSizes...)
	return &out
}
