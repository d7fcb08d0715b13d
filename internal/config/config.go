package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = ".rust-grapher.yaml"

type Config struct {
	Format         string   `yaml:"format"`
	Direction      string   `yaml:"direction"`
	Theme          string   `yaml:"theme"`
	NoFence        bool     `yaml:"no_fence"`
	Exclude        []string `yaml:"exclude"`
	Highlight      []string `yaml:"highlight"`
	WorkspaceOnly  bool     `yaml:"workspace_only"`
	IncludeMacros  bool     `yaml:"include_macros"`
	HideUnresolved bool     `yaml:"hide_unresolved"`
	Workers        int      `yaml:"workers"`
	LogLevel       string   `yaml:"log_level"`
	DB             string   `yaml:"db"`
}

// Default returns the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		Format:    "mermaid",
		Direction: "LR",
		Theme:     "default",
		LogLevel:  "info",
	}
}

// LoadConfig reads .env, then the YAML file at path, then RUST_GRAPHER_*
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if format := os.Getenv("RUST_GRAPHER_FORMAT"); format != "" {
		cfg.Format = format
	}
	if theme := os.Getenv("RUST_GRAPHER_THEME"); theme != "" {
		cfg.Theme = theme
	}
	if level := os.Getenv("RUST_GRAPHER_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if workers := os.Getenv("RUST_GRAPHER_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return nil, fmt.Errorf("invalid RUST_GRAPHER_WORKERS %q: %w", workers, err)
		}
		cfg.Workers = n
	}

	cfg.Format = strings.ToLower(cfg.Format)
	return cfg, nil
}
