package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/ceres/pkg/config"
	"mercator-hq/ceres/pkg/registry"
	"mercator-hq/ceres/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ceres",
	Short: "Ceres - tenant quota enforcement",
	Long: `Ceres decides whether granting resource deltas to a project would exceed
its limits. Limits live in a registry (remote HTTP service or local SQLite
database) with two-tier precedence: project overrides win over registered
defaults, and a resource with neither fails closed.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "ceres.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the configuration and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	if _, err := logging.Setup(logging.Config{
		Level:  level,
		Format: cfg.Telemetry.Logging.Format,
		Writer: os.Stderr,
	}); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newSession builds the registry session for the configured backend,
// optionally wrapped in the read cache. The returned closer releases the
// backend once the command is done.
func newSession(cfg *config.Config) (*registry.Session, func(), error) {
	dial, closer, err := newDial(cfg)
	if err != nil {
		return nil, nil, err
	}
	return registry.NewSession(cfg.Registry.EndpointID, dial), closer, nil
}

// newDial builds the DialFunc for the configured backend.
func newDial(cfg *config.Config) (registry.DialFunc, func(), error) {
	switch cfg.Registry.Backend {
	case "sqlite":
		store, err := registry.NewSQLiteStore(cfg.Registry.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite registry: %w", err)
		}
		client, stopCache, err := maybeCache(cfg, store)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		dial := func(ctx context.Context) (registry.Client, error) {
			return client, nil
		}
		return dial, func() { stopCache(); store.Close() }, nil

	case "http":
		httpCfg := registry.HTTPConfig{
			BaseURL:    cfg.Registry.URL,
			AuthToken:  cfg.Registry.AuthToken,
			Timeout:    cfg.Registry.Timeout,
			MaxRetries: cfg.Registry.MaxRetries,
		}
		inner := registry.Dial(httpCfg)
		if !cfg.Cache.Enabled {
			return inner, func() {}, nil
		}
		dial := func(ctx context.Context) (registry.Client, error) {
			client, err := inner(ctx)
			if err != nil {
				return nil, err
			}
			cached, err := registry.NewCached(client, registry.CachedConfig{
				TTL:             cfg.Cache.TTL,
				RefreshSchedule: cfg.Cache.RefreshSchedule,
			})
			if err != nil {
				return nil, err
			}
			return cached, nil
		}
		return dial, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown registry backend %q", cfg.Registry.Backend)
	}
}

// maybeCache wraps client in the read cache when enabled.
func maybeCache(cfg *config.Config, client registry.Client) (registry.Client, func(), error) {
	if !cfg.Cache.Enabled {
		return client, func() {}, nil
	}
	cached, err := registry.NewCached(client, registry.CachedConfig{
		TTL:             cfg.Cache.TTL,
		RefreshSchedule: cfg.Cache.RefreshSchedule,
	})
	if err != nil {
		return nil, nil, err
	}
	return cached, cached.Stop, nil
}

// openSQLiteStore opens the sqlite registry for admin commands, which need
// direct write access rather than the read-only Client contract.
func openSQLiteStore(cfg *config.Config) (*registry.SQLiteStore, error) {
	if cfg.Registry.Backend != "sqlite" {
		return nil, fmt.Errorf("this command requires the sqlite registry backend (got %q)", cfg.Registry.Backend)
	}
	return registry.NewSQLiteStore(cfg.Registry.SQLite.Path)
}
