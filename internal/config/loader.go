package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"
)

// Loader loads configuration from a YAML file and the environment. Tests can
// set Environment to inject a deterministic map instead of the process
// environment.
type Loader struct {
	// Path to a YAML config file; empty skips the file layer.
	Path        string
	Environment map[string]string
}

// Load reads the file layer (when configured), overlays environment
// variables, and validates the result.
func (l Loader) Load() (Config, error) {
	var cfg Config

	if l.Path != "" {
		raw, err := os.ReadFile(l.Path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", l.Path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", l.Path, err)
		}
	}

	opts := env.Options{Environment: l.Environment}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
