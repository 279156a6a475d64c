package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Sentinel errors returned by the loader.
var (
	ErrConfigNotFound = errors.New("configuration file not found")
	ErrInvalidYAML    = errors.New("invalid YAML syntax")
)

// ConfigFileName is the expected file name inside the config directory.
const ConfigFileName = "sdr.yaml"

// Initialize loads, merges, and validates configuration from configDir.
//
// Steps performed:
//  1. Read sdr.yaml (missing file falls back to pure defaults)
//  2. Expand {{.ENV_VAR}} template references
//  3. Parse YAML
//  4. Merge user values over built-in defaults
//  5. Validate the result
func Initialize(configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("Configuration initialized",
		"gateway_url", cfg.Gateway.URL,
		"instance", cfg.Gateway.InstanceName,
		"buffer_window_ms", cfg.Buffer.WindowMs,
		"max_tool_hops", cfg.Agent.MaxToolHops)

	return cfg, nil
}

func load(configDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Config file not found, using built-in defaults", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var user Config
	if err := yaml.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	// Non-zero user values override defaults; unset sections keep defaults.
	if err := mergo.Merge(cfg, &user, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge configuration: %w", err)
	}

	return cfg, nil
}
