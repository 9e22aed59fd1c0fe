package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ceres/pkg/registry"
)

var endpointCmd = &cobra.Command{
	Use:   "endpoint",
	Short: "Manage deployment endpoints",
}

var endpointSetCmd = &cobra.Command{
	Use:   "set <endpoint-id> <service-id> <region-id>",
	Short: "Register a deployment endpoint in the local sqlite registry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, err := openSQLiteStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.PutEndpoint(cmd.Context(), registry.Endpoint{
			ID:        args[0],
			ServiceID: args[1],
			RegionID:  args[2],
		}); err != nil {
			return err
		}

		fmt.Printf("endpoint %s -> (%s, %s)\n", args[0], args[1], args[2])
		return nil
	},
}

func init() {
	endpointCmd.AddCommand(endpointSetCmd)
	rootCmd.AddCommand(endpointCmd)
}
