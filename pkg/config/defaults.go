package config

import "time"

// Default configuration values.
const (
	DefaultRegistryBackend    = "http"
	DefaultRegistryTimeout    = 30 * time.Second
	DefaultRegistryMaxRetries = 3
	DefaultCacheTTL           = time.Minute
	DefaultEnforcementModel   = "flat"
	DefaultEnforcementTimeout = 30 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
)

// ApplyDefaults fills unset fields with default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Registry.Backend == "" {
		cfg.Registry.Backend = DefaultRegistryBackend
	}
	if cfg.Registry.Timeout == 0 {
		cfg.Registry.Timeout = DefaultRegistryTimeout
	}
	if cfg.Registry.MaxRetries == 0 {
		cfg.Registry.MaxRetries = DefaultRegistryMaxRetries
	}

	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}

	if cfg.Enforcement.Model == "" {
		cfg.Enforcement.Model = DefaultEnforcementModel
	}
	if cfg.Enforcement.Timeout == 0 {
		cfg.Enforcement.Timeout = DefaultEnforcementTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
}
