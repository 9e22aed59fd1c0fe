package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention CERES_SECTION_FIELD (e.g., CERES_REGISTRY_URL) and always take
// precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	// Registry overrides
	if val := os.Getenv("CERES_REGISTRY_BACKEND"); val != "" {
		cfg.Registry.Backend = val
	}
	if val := os.Getenv("CERES_REGISTRY_ENDPOINT_ID"); val != "" {
		cfg.Registry.EndpointID = val
	}
	if val := os.Getenv("CERES_REGISTRY_URL"); val != "" {
		cfg.Registry.URL = val
	}
	if val := os.Getenv("CERES_REGISTRY_AUTH_TOKEN"); val != "" {
		cfg.Registry.AuthToken = val
	}
	if val := os.Getenv("CERES_REGISTRY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Registry.Timeout = d
		}
	}
	if val := os.Getenv("CERES_REGISTRY_MAX_RETRIES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Registry.MaxRetries = i
		}
	}
	if val := os.Getenv("CERES_REGISTRY_SQLITE_PATH"); val != "" {
		cfg.Registry.SQLite.Path = val
	}

	// Cache overrides
	if val := os.Getenv("CERES_CACHE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Cache.Enabled = b
		}
	}
	if val := os.Getenv("CERES_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if val := os.Getenv("CERES_CACHE_REFRESH_SCHEDULE"); val != "" {
		cfg.Cache.RefreshSchedule = val
	}

	// Enforcement overrides
	if val := os.Getenv("CERES_ENFORCEMENT_MODEL"); val != "" {
		cfg.Enforcement.Model = val
	}
	if val := os.Getenv("CERES_ENFORCEMENT_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Enforcement.Timeout = d
		}
	}

	// Telemetry overrides
	if val := os.Getenv("CERES_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CERES_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
}
