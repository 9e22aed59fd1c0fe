package config

import (
	"time"
)

// Config is the top-level configuration for ceres.
type Config struct {
	// Registry configures the connection to the limits registry.
	Registry RegistryConfig `yaml:"registry"`

	// Cache configures the registry read cache.
	Cache CacheConfig `yaml:"cache"`

	// Enforcement configures the decision engine.
	Enforcement EnforcementConfig `yaml:"enforcement"`

	// Telemetry configures logging.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RegistryConfig selects and configures the limits registry backend.
type RegistryConfig struct {
	// Backend is the registry backend: "http" or "sqlite".
	Backend string `yaml:"backend"`

	// EndpointID identifies this deployment's endpoint in the registry.
	// Its (service, region) pair scopes every limit lookup.
	EndpointID string `yaml:"endpoint_id"`

	// URL is the base URL of the remote registry (http backend).
	URL string `yaml:"url"`

	// AuthToken authenticates against the remote registry (http backend).
	AuthToken string `yaml:"auth_token"`

	// Timeout is the per-request timeout for the http backend.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the retry count for transient http failures.
	MaxRetries int `yaml:"max_retries"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig configures the local SQLite registry backend.
type SQLiteConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path"`
}

// CacheConfig configures the registry read cache.
type CacheConfig struct {
	// Enabled turns the cache on.
	Enabled bool `yaml:"enabled"`

	// TTL is how long cached registry reads stay valid.
	TTL time.Duration `yaml:"ttl"`

	// RefreshSchedule is an optional cron expression for background refresh
	// of registered limits (e.g., "*/5 * * * *").
	RefreshSchedule string `yaml:"refresh_schedule"`
}

// EnforcementConfig configures the decision engine.
type EnforcementConfig struct {
	// Model is the enforcement model name. Only "flat" is implemented.
	Model string `yaml:"model"`

	// Timeout bounds the collaborator I/O of a single check.
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`
}
