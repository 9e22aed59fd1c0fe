package enforce

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/ceres/pkg/registry"
)

// limitSource labels where an effective limit came from, for metrics.
const (
	sourceProject    = "project"
	sourceRegistered = "registered"
	sourceMiss       = "miss"
)

// Resolver resolves the effective limit for a (project, resource) pair.
//
// Precedence is two-tier: a project override, when present, always wins over
// the registered default. If the registry returns more than one entry for a
// tier the lowest limit wins; the registry is assumed to hold at most one
// authoritative entry per scope, and taking the minimum keeps the decision
// deterministic and conservative instead of depending on registry ordering.
type Resolver struct {
	session *registry.Session
	metrics *Metrics
	logger  *slog.Logger
}

// NewResolver creates a resolver backed by the given registry session.
// metrics may be nil.
func NewResolver(session *registry.Session, metrics *Metrics) *Resolver {
	return &Resolver{
		session: session,
		metrics: metrics,
		logger:  slog.Default().With("component", "enforce.resolver"),
	}
}

// Resolve returns the effective limit for resourceName under projectID.
// It returns a LimitNotFoundError when neither an override nor a registered
// default exists.
func (r *Resolver) Resolve(ctx context.Context, projectID, resourceName string) (int64, error) {
	client, err := r.session.Client(ctx)
	if err != nil {
		return 0, err
	}
	serviceID, regionID, err := r.session.Scope(ctx)
	if err != nil {
		return 0, err
	}

	overrides, err := client.ListProjectLimits(ctx, serviceID, regionID, resourceName, projectID)
	if err != nil {
		return 0, fmt.Errorf("failed to list project limits for %s: %w", resourceName, err)
	}
	if len(overrides) > 0 {
		limit := overrides[0].ResourceLimit
		for _, l := range overrides[1:] {
			if l.ResourceLimit < limit {
				limit = l.ResourceLimit
			}
		}
		r.record(sourceProject)
		r.logger.Debug("limit resolved from project override",
			"project_id", projectID,
			"resource", resourceName,
			"limit", limit,
		)
		return limit, nil
	}

	defaults, err := client.ListRegisteredLimits(ctx, serviceID, regionID, resourceName)
	if err != nil {
		return 0, fmt.Errorf("failed to list registered limits for %s: %w", resourceName, err)
	}
	if len(defaults) > 0 {
		limit := defaults[0].DefaultLimit
		for _, l := range defaults[1:] {
			if l.DefaultLimit < limit {
				limit = l.DefaultLimit
			}
		}
		r.record(sourceRegistered)
		r.logger.Debug("limit resolved from registered default",
			"project_id", projectID,
			"resource", resourceName,
			"limit", limit,
		)
		return limit, nil
	}

	r.record(sourceMiss)
	return 0, &LimitNotFoundError{ResourceName: resourceName}
}

func (r *Resolver) record(source string) {
	if r.metrics != nil {
		r.metrics.RecordResolution(source)
	}
}
