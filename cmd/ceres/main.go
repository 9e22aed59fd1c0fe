// Ceres is a quota-enforcement helper for multi-tenant services.
//
// It decides whether granting a set of resource deltas to a project would
// exceed configured limits, resolving project overrides against registered
// defaults from a limits registry.
//
// Usage:
//
//	# Run an enforcement check
//	ceres check my-project --delta cores=2 --usage cores=5
//
//	# List the resource catalog for the configured scope
//	ceres resources
//
//	# Show effective limits for a project
//	ceres limits show my-project
//
//	# Manage a local sqlite registry
//	ceres endpoint set endpoint-1 compute region-one
//	ceres limits register cores 10
//	ceres limits override my-project cores 20
//
//	# Show version information
//	ceres version
package main

func main() {
	Execute()
}
