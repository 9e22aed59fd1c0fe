package enforce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"mercator-hq/ceres/pkg/registry"
)

// Enforcement model names. The model selects the strategy used to combine
// limits and usage into a decision. Only the flat model is implemented;
// the hierarchical model (limits inherited through a tree of projects) is a
// reserved extension point and is rejected at construction.
const (
	ModelFlat         = "flat"
	ModelHierarchical = "hierarchical"
)

// Enforcer is the quota enforcement decision engine.
//
// An Enforcer owns no per-call state: every check fetches the resource
// catalog, current usage, and effective limits fresh from its collaborators.
// The registry session is injected by the embedding application and shared
// across calls; the usage callback is invoked once per check.
//
// # Example
//
//	session := registry.NewSession("endpoint-1", registry.Dial(httpCfg))
//	enforcer, err := enforce.New(enforce.Config{
//	    Session: session,
//	    Usage:   countUsage,
//	})
//	if err := enforcer.Enforce(ctx, projectID, map[string]int64{"cores": 2}); err != nil {
//	    // claim rejected or check failed
//	}
type Enforcer struct {
	session  *registry.Session
	usage    UsageFunc
	catalog  *Catalog
	resolver *Resolver
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *Metrics
}

// Config contains configuration for the Enforcer.
type Config struct {
	// Session is the shared handle to the limits registry. Required.
	Session *registry.Session

	// Usage reports current usage per project and resource. Required.
	Usage UsageFunc

	// Model selects the enforcement model. Default: flat.
	Model string

	// Timeout bounds the collaborator I/O of a single check.
	// Default: 30 seconds. A negative value disables the bound.
	Timeout time.Duration

	// Logger is the structured logger. Default: slog.Default().
	Logger *slog.Logger

	// Metrics receives Prometheus metrics for checks. Optional.
	Metrics *Metrics
}

// New creates an Enforcer.
func New(cfg Config) (*Enforcer, error) {
	if cfg.Session == nil {
		return nil, fmt.Errorf("registry session cannot be nil")
	}
	if cfg.Usage == nil {
		return nil, fmt.Errorf("usage callback cannot be nil")
	}

	switch cfg.Model {
	case "", ModelFlat:
	case ModelHierarchical:
		return nil, fmt.Errorf("enforcement model %q is not implemented", cfg.Model)
	default:
		return nil, fmt.Errorf("unknown enforcement model %q", cfg.Model)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "enforce")

	return &Enforcer{
		session:  cfg.Session,
		usage:    cfg.Usage,
		catalog:  NewCatalog(cfg.Session),
		resolver: NewResolver(cfg.Session, cfg.Metrics),
		timeout:  cfg.Timeout,
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

// Enforce checks whether granting deltas to projectID would exceed any
// limit in scope. A nil or empty deltas map checks current usage only.
//
// On success the claim is within limits and nil is returned; nothing is
// reserved. Otherwise exactly one of ValidationError, LimitNotFoundError,
// ClaimExceedsLimitError, or registry.SessionInitError is returned (possibly
// wrapped), per the taxonomy in this package.
func (e *Enforcer) Enforce(ctx context.Context, projectID string, deltas map[string]int64) error {
	start := time.Now()
	checkID := uuid.NewString()
	log := e.logger.With("check_id", checkID, "project_id", projectID)

	err := e.enforce(ctx, log, projectID, deltas)

	elapsed := time.Since(start).Seconds()
	if e.metrics != nil {
		e.metrics.RecordCheckDuration("enforce", elapsed)
		switch {
		case err == nil:
			e.metrics.RecordCheck("granted")
		case isViolation(err):
			e.metrics.RecordCheck("rejected")
		default:
			e.metrics.RecordCheck("error")
		}
	}

	if err != nil {
		log.Debug("enforcement check failed", "error", err, "elapsed", elapsed)
		return err
	}

	log.Debug("enforcement check granted", "elapsed", elapsed)
	return nil
}

// CheckUsage verifies that projectID's current usage alone is within limits.
// It is equivalent to Enforce with an empty delta map, and is the call to
// make after creating resources when verifying the absence of a race between
// competing clients.
func (e *Enforcer) CheckUsage(ctx context.Context, projectID string) error {
	return e.Enforce(ctx, projectID, nil)
}

func (e *Enforcer) enforce(ctx context.Context, log *slog.Logger, projectID string, deltas map[string]int64) error {
	// Static input validation happens before any collaborator I/O.
	if projectID == "" {
		return &ValidationError{Reason: "project_id must be a non-empty string"}
	}
	for name, delta := range deltas {
		if name == "" {
			return &ValidationError{Reason: "resource name in deltas must be a non-empty string"}
		}
		if delta < 0 {
			return &ValidationError{Reason: fmt.Sprintf("delta for resource %s must be non-negative", name)}
		}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resources, err := e.catalog.ListResources(ctx)
	if err != nil {
		return err
	}

	inCatalog := make(map[string]struct{}, len(resources))
	for _, name := range resources {
		inCatalog[name] = struct{}{}
	}

	// Unknown delta keys are a hard input error, reported deterministically
	// in sorted key order.
	unknown := make([]string, 0)
	for name := range deltas {
		if _, ok := inCatalog[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &ValidationError{Reason: fmt.Sprintf("unexpected resource %s in deltas", unknown[0])}
	}

	// Complete the delta map: every catalog resource is checked, with a zero
	// delta when the caller did not claim it.
	claims := make(map[string]int64, len(resources))
	for _, name := range resources {
		claims[name] = deltas[name]
	}

	usage, err := e.usage(ctx, projectID, resources)
	if err != nil {
		return fmt.Errorf("usage callback failed: %w", err)
	}
	for _, name := range resources {
		current, ok := usage[name]
		if !ok {
			return &ValidationError{Reason: fmt.Sprintf("usage callback did not report usage for resource %s", name)}
		}
		if current < 0 {
			return &ValidationError{Reason: fmt.Sprintf("usage for resource %s must be non-negative", name)}
		}
	}

	// Resources are visited in the catalog's lexicographic order and limits
	// are resolved lazily, so the first violation aborts without paying for
	// the remaining lookups.
	for _, name := range resources {
		limit, err := e.resolver.Resolve(ctx, projectID, name)
		if err != nil {
			return err
		}

		current := usage[name]
		delta := claims[name]
		if current+delta > limit {
			if e.metrics != nil {
				e.metrics.RecordViolation(name)
			}
			log.Info("claim exceeds limit",
				"resource", name,
				"usage", current,
				"delta", delta,
				"limit", limit,
			)
			return &ClaimExceedsLimitError{Violation: Violation{
				ResourceName: name,
				Usage:        current,
				Delta:        delta,
				Limit:        limit,
			}}
		}
	}

	return nil
}

// isViolation reports whether err is a rejected claim rather than a failure
// to perform the check.
func isViolation(err error) bool {
	var claimErr *ClaimExceedsLimitError
	return errors.As(err, &claimErr)
}
