// Package config loads the reporting job configuration from YAML, .env and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the reporting job.
type Config struct {
	Backend Backend `yaml:"backend"`
	Logging Logging `yaml:"logging"`
	Gather  Gather  `yaml:"gather"`
	Metrics Metrics `yaml:"metrics"`
	Tracing Tracing `yaml:"tracing"`
	Debug   bool    `yaml:"debug"`
}

// Backend holds the CMS JSON:API endpoint and credentials.
type Backend struct {
	BaseURL            string   `yaml:"base_url"`
	APIKey             string   `yaml:"api_key"`
	Timeout            Duration `yaml:"timeout"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Gather controls the per-site fetch fan-out.
type Gather struct {
	MaxWorkers int `yaml:"max_workers"`
	// RequestsPerMinute paces backend queries; 0 disables pacing.
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// Metrics configures the optional Pushgateway push at the end of a run.
type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Tracing configures span export.
type Tracing struct {
	Stdout bool `yaml:"stdout"`
}

// Duration is a time.Duration that unmarshals from strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ---------------------------------------------------------------------------
// Defaults and validation
// ---------------------------------------------------------------------------

// Errors returned by Validate.
var (
	ErrMissingAPIKey  = errors.New("API key not found: set backend.api_key or DRUPAL_API_KEY")
	ErrMissingBaseURL = errors.New("backend URL not found: set backend.base_url or DRUPAL_BASE_URL")
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend: Backend{Timeout: Duration(30 * time.Second)},
		Logging: Logging{Level: "info", Format: "text"},
		Gather:  Gather{MaxWorkers: 9},
		Metrics: Metrics{Job: "publishing-report"},
	}
}

// Validate checks that the settings every run needs are present.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Backend.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	return nil
}

// LogLevel returns the effective log level; debug mode forces "debug".
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Logging.Level
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// Load reads the YAML configuration file at the given path on top of the
// defaults, and then applies environment variable overrides. A missing file
// is not an error, so the job can be configured from the environment alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DRUPAL_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}

	if v := os.Getenv("DRUPAL_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}

	if v := os.Getenv("DRUPAL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("DRUPAL_TIMEOUT: %w", err)
		}
		cfg.Backend.Timeout = Duration(d)
	}

	if v := os.Getenv("DRUPAL_INSECURE_SKIP_VERIFY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DRUPAL_INSECURE_SKIP_VERIFY: %w", err)
		}
		cfg.Backend.InsecureSkipVerify = b
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}

	if v := os.Getenv("DEBUG"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEBUG: %w", err)
		}
		cfg.Debug = b
	}

	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}

	return nil
}
