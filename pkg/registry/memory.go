package registry

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore implements Client using in-memory tables. It is the default
// backend for tests and for embedding applications that load limits from
// their own configuration. All data is lost when the process exits.
//
// MemoryStore is thread-safe and supports concurrent access using sync.RWMutex.
type MemoryStore struct {
	// endpoints maps endpoint id to endpoint.
	endpoints map[string]Endpoint

	// registered maps scope key (service:region) to registered limits.
	registered map[string][]RegisteredLimit

	// projects maps scope key to project override limits.
	projects map[string][]ProjectLimit

	// mu protects all three tables.
	mu sync.RWMutex
}

// NewMemoryStore creates an empty in-memory registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		endpoints:  make(map[string]Endpoint),
		registered: make(map[string][]RegisteredLimit),
		projects:   make(map[string][]ProjectLimit),
	}
}

// SetEndpoint registers or replaces an endpoint.
func (m *MemoryStore) SetEndpoint(endpoint Endpoint) error {
	if endpoint.ID == "" {
		return fmt.Errorf("endpoint id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.endpoints[endpoint.ID] = endpoint
	return nil
}

// SetRegisteredLimit registers or replaces the default limit for a resource
// within a scope.
func (m *MemoryStore) SetRegisteredLimit(serviceID, regionID string, limit RegisteredLimit) error {
	if limit.ResourceName == "" {
		return fmt.Errorf("resource name cannot be empty")
	}

	key := scopeKey(serviceID, regionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	limits := m.registered[key]
	for i := range limits {
		if limits[i].ResourceName == limit.ResourceName {
			limits[i] = limit
			return nil
		}
	}
	m.registered[key] = append(limits, limit)
	return nil
}

// SetProjectLimit registers or replaces a project override limit within a scope.
func (m *MemoryStore) SetProjectLimit(serviceID, regionID string, limit ProjectLimit) error {
	if limit.ResourceName == "" {
		return fmt.Errorf("resource name cannot be empty")
	}
	if limit.ProjectID == "" {
		return fmt.Errorf("project id cannot be empty")
	}

	key := scopeKey(serviceID, regionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	limits := m.projects[key]
	for i := range limits {
		if limits[i].ResourceName == limit.ResourceName && limits[i].ProjectID == limit.ProjectID {
			limits[i] = limit
			return nil
		}
	}
	m.projects[key] = append(limits, limit)
	return nil
}

// DeleteRegisteredLimit removes the default limit for a resource, if present.
func (m *MemoryStore) DeleteRegisteredLimit(serviceID, regionID, resourceName string) {
	key := scopeKey(serviceID, regionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	limits := m.registered[key]
	for i := range limits {
		if limits[i].ResourceName == resourceName {
			m.registered[key] = append(limits[:i], limits[i+1:]...)
			return
		}
	}
}

// DeleteProjectLimit removes a project override limit, if present.
func (m *MemoryStore) DeleteProjectLimit(serviceID, regionID, resourceName, projectID string) {
	key := scopeKey(serviceID, regionID)

	m.mu.Lock()
	defer m.mu.Unlock()

	limits := m.projects[key]
	for i := range limits {
		if limits[i].ResourceName == resourceName && limits[i].ProjectID == projectID {
			m.projects[key] = append(limits[:i], limits[i+1:]...)
			return
		}
	}
}

// GetEndpoint resolves the deployment endpoint by its identifier.
func (m *MemoryStore) GetEndpoint(ctx context.Context, endpointID string) (*Endpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	endpoint, exists := m.endpoints[endpointID]
	if !exists {
		return nil, fmt.Errorf("endpoint %q: %w", endpointID, ErrEndpointNotFound)
	}
	return &endpoint, nil
}

// ListRegisteredLimits returns the registered limits in scope, optionally
// filtered to a single resource name.
func (m *MemoryStore) ListRegisteredLimits(ctx context.Context, serviceID, regionID, resourceName string) ([]RegisteredLimit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []RegisteredLimit
	for _, limit := range m.registered[scopeKey(serviceID, regionID)] {
		if resourceName == "" || limit.ResourceName == resourceName {
			out = append(out, limit)
		}
	}
	return out, nil
}

// ListProjectLimits returns the project override limits for a resource in scope.
func (m *MemoryStore) ListProjectLimits(ctx context.Context, serviceID, regionID, resourceName, projectID string) ([]ProjectLimit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ProjectLimit
	for _, limit := range m.projects[scopeKey(serviceID, regionID)] {
		if limit.ProjectID != projectID {
			continue
		}
		if resourceName == "" || limit.ResourceName == resourceName {
			out = append(out, limit)
		}
	}
	return out, nil
}

// scopeKey creates a composite key from service and region.
func scopeKey(serviceID, regionID string) string {
	return fmt.Sprintf("%s:%s", serviceID, regionID)
}
