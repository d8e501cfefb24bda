// Package config loads the assetrev YAML configuration with environment
// variable expansion and optional .env files.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Build    BuildConfig    `yaml:"build"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// BuildConfig locates the input build tree and the output tree.
type BuildConfig struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// PipelineConfig tunes pipeline execution.
type PipelineConfig struct {
	Concurrency int   `yaml:"concurrency,omitempty"` // 0 = number of CPUs
	Minify      *bool `yaml:"minify,omitempty"`      // default true
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug|info|warn|error
	Format string `yaml:"format,omitempty"` // text|json
}

// MetricsConfig enables Prometheus run metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled,omitempty"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from the specified file. A .env/.env.local file,
// if present, is loaded into the environment first; environment references
// in the YAML content are expanded before parsing.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- path supplied by operator
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Build.Input == "" {
		c.Build.Input = "./site"
	}
	if c.Build.Output == "" {
		c.Build.Output = "./dist"
	}
	if c.Pipeline.Minify == nil {
		t := true
		c.Pipeline.Minify = &t
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Build.Input == "" || c.Build.Output == "" {
		return fmt.Errorf("build.input and build.output must be set")
	}
	if c.Build.Input == c.Build.Output {
		return fmt.Errorf("build.input and build.output must differ")
	}
	if c.Pipeline.Concurrency < 0 {
		return fmt.Errorf("pipeline.concurrency must be >= 0")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}
