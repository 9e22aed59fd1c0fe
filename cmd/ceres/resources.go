package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/ceres/pkg/enforce"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources",
	Short: "List the resource catalog for the configured scope",
	Long: `List every resource name that has a registered limit within the
configured (service, region) scope, in the order enforcement checks them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		names, err := catalog.ListResources(cmd.Context())
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("no resources registered in scope")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resourcesCmd)
}
