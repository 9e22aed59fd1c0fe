package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Cached is a read-through TTL cache decorator over a Client.
//
// Endpoints, registered-limit queries, and project-limit queries are cached
// independently, keyed by their full query. An optional cron schedule
// refreshes previously seen registered-limit queries in the background so
// that enforcement checks rarely pay registry latency for defaults, which
// change far less often than project overrides.
//
// The cache trades staleness for latency: a limit changed in the registry is
// observed at most TTL (or one refresh interval) later.
type Cached struct {
	inner Client
	ttl   time.Duration
	now   func() time.Time

	cron     *cron.Cron
	schedule string
	logger   *slog.Logger

	mu         sync.RWMutex
	endpoints  map[string]cacheEntry[*Endpoint]
	registered map[string]cacheEntry[[]RegisteredLimit]
	projects   map[string]cacheEntry[[]ProjectLimit]
	running    bool
}

type cacheEntry[T any] struct {
	value   T
	expires time.Time
}

// CachedConfig configures the cache decorator.
type CachedConfig struct {
	// TTL is how long cached entries remain valid. Default: 1 minute.
	TTL time.Duration

	// RefreshSchedule is an optional cron expression (e.g., "*/5 * * * *")
	// for background refresh of registered-limit queries. Empty disables
	// background refresh.
	RefreshSchedule string
}

// NewCached wraps a client with a TTL cache.
func NewCached(inner Client, cfg CachedConfig) (*Cached, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner client cannot be nil")
	}
	if cfg.TTL == 0 {
		cfg.TTL = time.Minute
	}
	if cfg.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(cfg.RefreshSchedule); err != nil {
			return nil, fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshSchedule, err)
		}
	}

	return &Cached{
		inner:      inner,
		ttl:        cfg.TTL,
		now:        time.Now,
		cron:       cron.New(),
		schedule:   cfg.RefreshSchedule,
		logger:     slog.Default().With("component", "registry.cache"),
		endpoints:  make(map[string]cacheEntry[*Endpoint]),
		registered: make(map[string]cacheEntry[[]RegisteredLimit]),
		projects:   make(map[string]cacheEntry[[]ProjectLimit]),
	}, nil
}

// Start begins the background refresh, if a schedule is configured.
func (c *Cached) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.schedule == "" || c.running {
		return nil
	}

	_, err := c.cron.AddFunc(c.schedule, func() {
		c.refreshRegistered(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule cache refresh: %w", err)
	}

	c.cron.Start()
	c.running = true
	c.logger.Info("registry cache refresh started", "schedule", c.schedule, "ttl", c.ttl)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return nil
}

// Stop stops the background refresh and waits for a running job to finish.
func (c *Cached) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil && c.running {
		done := c.cron.Stop()
		<-done.Done()
		c.running = false
		c.logger.Info("registry cache refresh stopped")
	}
}

// GetEndpoint resolves an endpoint, serving from cache when fresh.
func (c *Cached) GetEndpoint(ctx context.Context, endpointID string) (*Endpoint, error) {
	c.mu.RLock()
	entry, ok := c.endpoints[endpointID]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.value, nil
	}

	endpoint, err := c.inner.GetEndpoint(ctx, endpointID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.endpoints[endpointID] = cacheEntry[*Endpoint]{value: endpoint, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return endpoint, nil
}

// ListRegisteredLimits lists registered limits, serving from cache when fresh.
func (c *Cached) ListRegisteredLimits(ctx context.Context, serviceID, regionID, resourceName string) ([]RegisteredLimit, error) {
	key := fmt.Sprintf("%s:%s:%s", serviceID, regionID, resourceName)

	c.mu.RLock()
	entry, ok := c.registered[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.value, nil
	}

	limits, err := c.inner.ListRegisteredLimits(ctx, serviceID, regionID, resourceName)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.registered[key] = cacheEntry[[]RegisteredLimit]{value: limits, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return limits, nil
}

// ListProjectLimits lists project limits, serving from cache when fresh.
func (c *Cached) ListProjectLimits(ctx context.Context, serviceID, regionID, resourceName, projectID string) ([]ProjectLimit, error) {
	key := fmt.Sprintf("%s:%s:%s:%s", serviceID, regionID, resourceName, projectID)

	c.mu.RLock()
	entry, ok := c.projects[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expires) {
		return entry.value, nil
	}

	limits, err := c.inner.ListProjectLimits(ctx, serviceID, regionID, resourceName, projectID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.projects[key] = cacheEntry[[]ProjectLimit]{value: limits, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return limits, nil
}

// Invalidate drops every cached entry.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.endpoints = make(map[string]cacheEntry[*Endpoint])
	c.registered = make(map[string]cacheEntry[[]RegisteredLimit])
	c.projects = make(map[string]cacheEntry[[]ProjectLimit])
}

// refreshRegistered re-fetches every registered-limit query currently cached.
func (c *Cached) refreshRegistered(ctx context.Context) {
	c.mu.RLock()
	keys := make([]string, 0, len(c.registered))
	for key := range c.registered {
		keys = append(keys, key)
	}
	c.mu.RUnlock()

	refreshed := 0
	for _, key := range keys {
		serviceID, regionID, resourceName, ok := splitScopeKey(key)
		if !ok {
			continue
		}
		limits, err := c.inner.ListRegisteredLimits(ctx, serviceID, regionID, resourceName)
		if err != nil {
			c.logger.Warn("registered-limit refresh failed", "key", key, "error", err)
			continue
		}

		c.mu.Lock()
		c.registered[key] = cacheEntry[[]RegisteredLimit]{value: limits, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		refreshed++
	}

	if refreshed > 0 {
		c.logger.Debug("registered-limit cache refreshed", "entries", refreshed)
	}
}

// splitScopeKey reverses the cache key built in ListRegisteredLimits.
// Service and region ids never contain colons; the resource name may be empty.
func splitScopeKey(key string) (serviceID, regionID, resourceName string, ok bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}
