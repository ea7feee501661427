// Package config handles YAML configuration parsing for the simulation.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Seed    int64  `yaml:"seed"`
	DBPath  string `yaml:"db_path"`
	APIPort int    `yaml:"api_port"`
	// AdminKey guards the scenario POST endpoints. Empty disables them.
	AdminKey string   `yaml:"admin_key"`
	Zones    []string `yaml:"zones"`

	Ticks    TickConfig    `yaml:"ticks"`
	Scenario ScenarioConfig `yaml:"scenario"`
}

// TickConfig sets each agent type's tick period and the background
// simulator period. Agents tick independently; nothing aligns them.
type TickConfig struct {
	Lab       time.Duration `yaml:"lab"`
	Hospital  time.Duration `yaml:"hospital"`
	Pharmacy  time.Duration `yaml:"pharmacy"`
	Supplier  time.Duration `yaml:"supplier"`
	City      time.Duration `yaml:"city"`
	Simulator time.Duration `yaml:"simulator"`
}

// ScenarioConfig controls outbreak trigger behavior.
type ScenarioConfig struct {
	// OutbreakTTL bounds how long a triggered outbreak multiplier stays
	// active before expiring on its own.
	OutbreakTTL time.Duration `yaml:"outbreak_ttl"`
	// DefaultMultiplier applies when a trigger does not name one.
	DefaultMultiplier float64 `yaml:"default_multiplier"`
}

// Default returns the configuration the reference deployment runs with.
func Default() Config {
	return Config{
		Seed:    42,
		DBPath:  "data/healthgrid.db",
		APIPort: 8080,
		Zones:   []string{"Zone-1", "Zone-2", "Zone-3"},
		Ticks: TickConfig{
			Lab:       10 * time.Second,
			Hospital:  12 * time.Second,
			Pharmacy:  12 * time.Second,
			Supplier:  15 * time.Second,
			City:      15 * time.Second,
			Simulator: 30 * time.Second,
		},
		Scenario: ScenarioConfig{
			OutbreakTTL:       5 * time.Minute,
			DefaultMultiplier: 3,
		},
	}
}

// Load reads a YAML file over the defaults. A missing path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the agents cannot run with.
func (c Config) Validate() error {
	if c.Ticks.Lab <= 0 || c.Ticks.Hospital <= 0 || c.Ticks.Pharmacy <= 0 ||
		c.Ticks.Supplier <= 0 || c.Ticks.City <= 0 || c.Ticks.Simulator <= 0 {
		return fmt.Errorf("all tick periods must be positive")
	}
	if c.Scenario.OutbreakTTL <= 0 {
		return fmt.Errorf("scenario outbreak_ttl must be positive")
	}
	if len(c.Zones) == 0 {
		return fmt.Errorf("at least one zone is required")
	}
	return nil
}
