package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for errors.
func Validate(cfg *Config) error {
	switch cfg.Registry.Backend {
	case "http":
		if cfg.Registry.URL == "" {
			return fmt.Errorf("registry.url is required for the http backend")
		}
	case "sqlite":
		if cfg.Registry.SQLite.Path == "" {
			return fmt.Errorf("registry.sqlite.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown registry backend %q (expected \"http\" or \"sqlite\")", cfg.Registry.Backend)
	}

	if cfg.Registry.EndpointID == "" {
		return fmt.Errorf("registry.endpoint_id is required")
	}
	if cfg.Registry.Timeout < 0 {
		return fmt.Errorf("registry.timeout cannot be negative")
	}
	if cfg.Registry.MaxRetries < 0 {
		return fmt.Errorf("registry.max_retries cannot be negative")
	}

	if cfg.Cache.Enabled {
		if cfg.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive when the cache is enabled")
		}
		if cfg.Cache.RefreshSchedule != "" {
			if _, err := cron.ParseStandard(cfg.Cache.RefreshSchedule); err != nil {
				return fmt.Errorf("invalid cache.refresh_schedule %q: %w", cfg.Cache.RefreshSchedule, err)
			}
		}
	}

	switch cfg.Enforcement.Model {
	case "flat":
	case "hierarchical":
		return fmt.Errorf("enforcement model %q is not implemented", cfg.Enforcement.Model)
	default:
		return fmt.Errorf("unknown enforcement model %q", cfg.Enforcement.Model)
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Telemetry.Logging.Format)
	}

	return nil
}
