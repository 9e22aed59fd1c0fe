// Package registry defines the contract against the external limits registry
// and provides concrete backends for it.
//
// # Overview
//
// The registry is the authoritative store of limits. Two kinds of entries
// exist per (service, region) enforcement scope:
//
//   - Registered limits: the service-wide default limit for a resource
//   - Project limits: per-project overrides of a registered limit
//
// The enforcement engine in pkg/enforce consumes the registry exclusively
// through the Client interface, so any backend can serve it.
//
// # Backends
//
//   - HTTPClient: JSON/HTTP client for a remote registry service
//   - SQLiteStore: local SQLite-backed registry with admin writes
//   - MemoryStore: in-memory registry for tests and embedding
//   - Cached: read-through TTL cache decorator over any Client
//
// # Sessions
//
// Session wraps a Client behind a lazily initialized, process-shared handle.
// Initialization runs under a mutex and happens at most once on success; a
// failed dial surfaces as SessionInitError and is retried on the next call.
package registry
