// Package config provides configuration loading and management for
// bpsense. It handles loading solver defaults from YAML files and
// provides built-in default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
// It carries the solver defaults; command-line options override these
// per run.
type Config struct {
	// Solver parameters
	Solver struct {
		// Rho is the ADMM penalty parameter.
		Rho float64 `yaml:"rho"`

		// MaxIter bounds the outer ADMM iterations.
		MaxIter int `yaml:"maxIter"`

		// MaxCGIter bounds each inner conjugate-gradient solve.
		MaxCGIter int `yaml:"maxCGIter"`

		// CGTol is the inner solve's relative residual tolerance.
		CGTol float64 `yaml:"cgTol"`
	} `yaml:"solver"`

	// Wavelet transform parameters
	Wavelet struct {
		// MinSize is the minimum block size per spatial axis.
		MinSize int `yaml:"minSize"`

		// RandomShift enables random grid shifts in the threshold step.
		RandomShift bool `yaml:"randomShift"`

		// Seed seeds the shift generator when RandomShift is enabled.
		Seed uint64 `yaml:"seed"`
	} `yaml:"wavelet"`

	// Output parameters
	Output struct {
		// Verbose controls the level of progress output.
		Verbose bool `yaml:"verbose"`

		// SliceDir, when set, receives magnitude images of the result.
		SliceDir string `yaml:"sliceDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Solver.Rho = 10
	cfg.Solver.MaxIter = 100
	cfg.Solver.MaxCGIter = 10
	cfg.Solver.CGTol = 1e-3

	cfg.Wavelet.MinSize = 16
	cfg.Wavelet.RandomShift = true
	cfg.Wavelet.Seed = 1

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file does
// not exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
