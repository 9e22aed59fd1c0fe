package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"mercator-hq/ceres/pkg/enforce"
	"mercator-hq/ceres/pkg/registry"
)

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Inspect and manage limits",
}

var limitsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show effective limits for a project",
	Long: `Show the effective limit for every resource in scope, resolving the
project's overrides against the registered defaults.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID := args[0]

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		session, closer, err := newSession(cfg)
		if err != nil {
			return err
		}
		defer closer()

		catalog := enforce.NewCatalog(session)
		resolver := enforce.NewResolver(session, nil)

		names, err := catalog.ListResources(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RESOURCE\tLIMIT")
		for _, name := range names {
			limit, err := resolver.Resolve(cmd.Context(), projectID, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\n", name, limit)
		}
		return w.Flush()
	},
}

var limitsRegisterCmd = &cobra.Command{
	Use:   "register <resource> <limit>",
	Short: "Register a default limit in the local sqlite registry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || limit < 0 {
			return fmt.Errorf("limit must be a non-negative integer, got %q", args[1])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := openSQLiteStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		serviceID, regionID, err := resolveScope(cmd, store, cfg.Registry.EndpointID)
		if err != nil {
			return err
		}

		if err := store.PutRegisteredLimit(cmd.Context(), serviceID, regionID, registry.RegisteredLimit{
			ResourceName: args[0],
			DefaultLimit: limit,
		}); err != nil {
			return err
		}

		fmt.Printf("registered limit %s=%d in scope (%s, %s)\n", args[0], limit, serviceID, regionID)
		return nil
	},
}

var limitsOverrideCmd = &cobra.Command{
	Use:   "override <project-id> <resource> <limit>",
	Short: "Set a project override limit in the local sqlite registry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil || limit < 0 {
			return fmt.Errorf("limit must be a non-negative integer, got %q", args[2])
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := openSQLiteStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		serviceID, regionID, err := resolveScope(cmd, store, cfg.Registry.EndpointID)
		if err != nil {
			return err
		}

		if err := store.PutProjectLimit(cmd.Context(), serviceID, regionID, registry.ProjectLimit{
			ProjectID:     args[0],
			ResourceName:  args[1],
			ResourceLimit: limit,
		}); err != nil {
			return err
		}

		fmt.Printf("override limit %s=%d set for project %s in scope (%s, %s)\n",
			args[1], limit, args[0], serviceID, regionID)
		return nil
	},
}

func init() {
	limitsCmd.AddCommand(limitsShowCmd)
	limitsCmd.AddCommand(limitsRegisterCmd)
	limitsCmd.AddCommand(limitsOverrideCmd)
	rootCmd.AddCommand(limitsCmd)
}

// resolveScope looks up the configured endpoint's (service, region) pair.
func resolveScope(cmd *cobra.Command, store *registry.SQLiteStore, endpointID string) (string, string, error) {
	endpoint, err := store.GetEndpoint(cmd.Context(), endpointID)
	if err != nil {
		return "", "", fmt.Errorf("endpoint %q must be set first (ceres endpoint set): %w", endpointID, err)
	}
	return endpoint.ServiceID, endpoint.RegionID, nil
}
