package enforce

import (
	"context"
	"fmt"
	"sort"

	"mercator-hq/ceres/pkg/registry"
)

// Catalog enumerates the resource names that have a registered limit within
// the enforcement scope. The catalog defines which delta keys are valid and
// which resources a check covers.
type Catalog struct {
	session *registry.Session
}

// NewCatalog creates a catalog backed by the given registry session.
func NewCatalog(session *registry.Session) *Catalog {
	return &Catalog{session: session}
}

// ListResources returns the resource names in scope, deduplicated and sorted
// lexicographically. The sort fixes the order violations are reported in.
func (c *Catalog) ListResources(ctx context.Context) ([]string, error) {
	client, err := c.session.Client(ctx)
	if err != nil {
		return nil, err
	}
	serviceID, regionID, err := c.session.Scope(ctx)
	if err != nil {
		return nil, err
	}

	limits, err := client.ListRegisteredLimits(ctx, serviceID, regionID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list registered limits: %w", err)
	}

	seen := make(map[string]struct{}, len(limits))
	names := make([]string, 0, len(limits))
	for _, limit := range limits {
		if _, dup := seen[limit.ResourceName]; dup {
			continue
		}
		seen[limit.ResourceName] = struct{}{}
		names = append(names, limit.ResourceName)
	}
	sort.Strings(names)

	return names, nil
}
