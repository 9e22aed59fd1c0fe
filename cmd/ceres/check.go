package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/ceres/pkg/enforce"
)

var (
	checkDeltas []string
	checkUsage  []string
)

var checkCmd = &cobra.Command{
	Use:   "check <project-id>",
	Short: "Run an enforcement check for a project",
	Long: `Check whether claiming the given resource deltas would exceed the
project's limits. Current usage is supplied with --usage pairs; resources
without a pair count as zero usage. With no --delta pairs the command checks
current usage only.

The command exits 0 when the claim fits, 1 when it would exceed a limit or
the check fails.`,
	Example: `  ceres check my-project --delta cores=2 --usage cores=5
  ceres check my-project --usage cores=8 --usage ram_mb=2048`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID := args[0]

		deltas, err := parseCounts(checkDeltas)
		if err != nil {
			return fmt.Errorf("invalid --delta: %w", err)
		}
		usage, err := parseCounts(checkUsage)
		if err != nil {
			return fmt.Errorf("invalid --usage: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		session, closer, err := newSession(cfg)
		if err != nil {
			return err
		}
		defer closer()

		enforcer, err := enforce.New(enforce.Config{
			Session: session,
			Usage:   staticUsage(usage),
			Model:   cfg.Enforcement.Model,
			Timeout: cfg.Enforcement.Timeout,
		})
		if err != nil {
			return err
		}

		err = enforcer.Enforce(cmd.Context(), projectID, deltas)
		switch {
		case err == nil:
			fmt.Printf("claim granted for project %s\n", projectID)
			return nil
		case errors.Is(err, enforce.ErrClaimExceedsLimit):
			return fmt.Errorf("claim rejected: %w", err)
		default:
			return err
		}
	},
}

func init() {
	checkCmd.Flags().StringArrayVarP(&checkDeltas, "delta", "d", nil, "requested delta as name=count (repeatable)")
	checkCmd.Flags().StringArrayVarP(&checkUsage, "usage", "u", nil, "current usage as name=count (repeatable)")
	rootCmd.AddCommand(checkCmd)
}

// staticUsage adapts operator-supplied usage pairs into a UsageFunc.
// Resources not supplied count as zero usage.
func staticUsage(usage map[string]int64) enforce.UsageFunc {
	return func(ctx context.Context, projectID string, resources []string) (map[string]int64, error) {
		out := make(map[string]int64, len(resources))
		for _, name := range resources {
			out[name] = usage[name]
		}
		return out, nil
	}
}

// parseCounts parses repeated name=count pairs into a map.
func parseCounts(pairs []string) (map[string]int64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := make(map[string]int64, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("expected name=count, got %q", pair)
		}
		count, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid count in %q: %w", pair, err)
		}
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("duplicate resource %q", name)
		}
		out[name] = count
	}
	return out, nil
}
