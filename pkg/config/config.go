// Package config loads and validates the orgforge configuration from a
// YAML file with environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/orgforge/orgforge/pkg/auth"
	"github.com/orgforge/orgforge/pkg/orchestrator"
	"github.com/orgforge/orgforge/pkg/remote"
	"github.com/orgforge/orgforge/pkg/telemetry"
)

// OrchestratorConfig tunes plan execution.
type OrchestratorConfig struct {
	// MaxParallel bounds concurrent sibling steps within one plan level.
	MaxParallel int `yaml:"max_parallel" validate:"omitempty,min=1,max=32"`

	// Retry tunes the per-call retry policy.
	Retry orchestrator.RetryConfig `yaml:"retry"`
}

// DatabaseConfig configures local persistence.
type DatabaseConfig struct {
	// Path is the SQLite database file for templates and audit records.
	Path string `yaml:"path"`
}

// Config is the root configuration.
type Config struct {
	API       remote.Config      `yaml:"api" validate:"required"`
	Auth      auth.Config        `yaml:"auth"`
	Orch      OrchestratorConfig `yaml:"orchestrator"`
	Database  DatabaseConfig     `yaml:"database"`
	Telemetry telemetry.Config   `yaml:"telemetry"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Default returns the baseline configuration before file and environment
// values are applied.
func Default() Config {
	return Config{
		API: remote.Config{
			Timeout: 30 * time.Second,
		},
		Orch: OrchestratorConfig{
			MaxParallel: orchestrator.DefaultMaxParallel,
			Retry:       orchestrator.DefaultRetryConfig(),
		},
		Database: DatabaseConfig{
			Path: "orgforge.db",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load reads configuration from path (optional), applies environment
// overrides, and validates the result. An empty path loads defaults plus
// environment only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := configValidator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyEnv overrides file values with ORGFORGE_* environment variables.
// Secrets are expected to arrive this way rather than in the file.
func applyEnv(cfg *Config) {
	if v := os.Getenv("ORGFORGE_API_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("ORGFORGE_API_TENANT"); v != "" {
		cfg.API.Tenant = v
	}
	if v := os.Getenv("ORGFORGE_AUTH_TOKEN_URL"); v != "" {
		cfg.Auth.TokenURL = v
	}
	if v := os.Getenv("ORGFORGE_AUTH_CLIENT_ID"); v != "" {
		cfg.Auth.ClientID = v
	}
	if v := os.Getenv("ORGFORGE_AUTH_CLIENT_SECRET"); v != "" {
		cfg.Auth.ClientSecret = v
	}
	if v := os.Getenv("ORGFORGE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ORGFORGE_LOG_LEVEL"); v != "" {
		cfg.Telemetry.Logging.Level = v
	}
}
