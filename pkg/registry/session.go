package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// DialFunc establishes a connection to the limits registry.
type DialFunc func(ctx context.Context) (Client, error)

// Session is a shared, lazily initialized handle to the limits registry.
//
// Concurrent callers share one Client after the first successful dial.
// Initialization runs under a mutex with at-most-once-on-success semantics:
// a failed dial is surfaced as SessionInitError to every caller racing the
// attempt and is NOT cached, so a later call dials again. The session also
// resolves the (service, region) enforcement scope from the configured
// endpoint id once and reuses it for the session's lifetime.
//
// The session is constructed and owned by the embedding application and
// injected into the enforcement engine; there is no package-global handle.
type Session struct {
	endpointID string
	dial       DialFunc
	logger     *slog.Logger

	mu     sync.Mutex
	client Client
	scope  *Endpoint
}

// NewSession creates a session that dials the registry on first use.
func NewSession(endpointID string, dial DialFunc) *Session {
	return &Session{
		endpointID: endpointID,
		dial:       dial,
		logger:     slog.Default().With("component", "registry.session"),
	}
}

// Client returns the shared registry client, dialing it if necessary.
func (s *Session) Client(ctx context.Context) (Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientLocked(ctx)
}

// Scope returns the (serviceID, regionID) enforcement scope, resolving the
// configured endpoint on first call.
func (s *Session) Scope(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scope != nil {
		return s.scope.ServiceID, s.scope.RegionID, nil
	}

	client, err := s.clientLocked(ctx)
	if err != nil {
		return "", "", err
	}

	endpoint, err := client.GetEndpoint(ctx, s.endpointID)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve endpoint %q: %w", s.endpointID, err)
	}

	s.scope = endpoint
	s.logger.Debug("enforcement scope resolved",
		"endpoint_id", s.endpointID,
		"service_id", endpoint.ServiceID,
		"region_id", endpoint.RegionID,
	)

	return endpoint.ServiceID, endpoint.RegionID, nil
}

// clientLocked dials the registry if no client is cached yet.
// Caller must hold s.mu.
func (s *Session) clientLocked(ctx context.Context) (Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	client, err := s.dial(ctx)
	if err != nil {
		s.logger.Error("registry session bootstrap failed", "error", err)
		return nil, &SessionInitError{Reason: err}
	}

	s.client = client
	s.logger.Info("registry session established", "endpoint_id", s.endpointID)
	return client, nil
}
