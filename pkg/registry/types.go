package registry

import (
	"context"
	"errors"
	"fmt"
)

// Endpoint identifies the deployment whose (service, region) pair scopes all
// limit lookups.
type Endpoint struct {
	// ID is the endpoint identifier configured for this deployment.
	ID string

	// ServiceID is the service the endpoint belongs to.
	ServiceID string

	// RegionID is the region the endpoint is deployed in.
	RegionID string
}

// RegisteredLimit is the service-wide default limit for a resource, absent
// any project-specific override.
type RegisteredLimit struct {
	// ResourceName is the countable resource the limit applies to.
	ResourceName string

	// DefaultLimit is the default number of resources a project may consume.
	DefaultLimit int64
}

// ProjectLimit is a limit specific to one project. It supersedes the
// registered default for the same resource.
type ProjectLimit struct {
	// ProjectID is the project the override applies to.
	ProjectID string

	// ResourceName is the countable resource the limit applies to.
	ResourceName string

	// ResourceLimit is the number of resources the project may consume.
	ResourceLimit int64
}

// Client is the read contract against the limits registry. All lookups are
// scoped by (serviceID, regionID).
//
// Implementations must treat an empty resourceName in ListRegisteredLimits
// as "all resources in scope". Returned slices may be empty, never nil
// checked by callers beyond length.
type Client interface {
	// GetEndpoint resolves the deployment endpoint by its identifier.
	GetEndpoint(ctx context.Context, endpointID string) (*Endpoint, error)

	// ListRegisteredLimits returns the registered (default) limits in scope,
	// optionally filtered to a single resource name.
	ListRegisteredLimits(ctx context.Context, serviceID, regionID, resourceName string) ([]RegisteredLimit, error)

	// ListProjectLimits returns the project override limits for a resource
	// within scope.
	ListProjectLimits(ctx context.Context, serviceID, regionID, resourceName, projectID string) ([]ProjectLimit, error)
}

// Error sentinels for the registry package.
var (
	// ErrEndpointNotFound is returned when an endpoint id resolves to nothing.
	ErrEndpointNotFound = errors.New("endpoint not found")

	// ErrSessionInit is the base error for registry session bootstrap failures.
	ErrSessionInit = errors.New("session initialization failed")
)

// SessionInitError reports that the shared registry session could not be
// established (bad credentials, discovery failure, unreachable registry).
type SessionInitError struct {
	// Reason is the underlying bootstrap failure.
	Reason error
}

// Error implements the error interface.
func (e *SessionInitError) Error() string {
	return fmt.Sprintf("can't initialise registry session, reason: %s", e.Reason)
}

// Unwrap returns the underlying bootstrap failure.
func (e *SessionInitError) Unwrap() error {
	return e.Reason
}

// Is reports whether target matches the session-init error kind.
func (e *SessionInitError) Is(target error) bool {
	return target == ErrSessionInit
}
