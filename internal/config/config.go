// Package config loads and saves engine run configuration as YAML and
// ships the built-in preset table.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt            = 0.001
	DefaultStepsPerFrame = 5
)

type Config struct {
	System        string             `yaml:"system"`
	Integrator    string             `yaml:"integrator"`
	Dt            float64            `yaml:"dt"`
	StepsPerFrame int                `yaml:"steps_per_frame"`
	Params        map[string]float64 `yaml:"params,omitempty"`
	InitState     []float64          `yaml:"init_state,omitempty"`
	Bodies        []BodyConfig       `yaml:"bodies,omitempty"`
}

type BodyConfig struct {
	Name     string     `yaml:"name"`
	Color    string     `yaml:"color,omitempty"`
	Mass     float64    `yaml:"mass"`
	Position [3]float64 `yaml:"position"`
	Velocity [3]float64 `yaml:"velocity"`
}

func DefaultConfig() *Config {
	return &Config{
		System:        "lorenz",
		Integrator:    "rk4",
		Dt:            DefaultDt,
		StepsPerFrame: DefaultStepsPerFrame,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
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
