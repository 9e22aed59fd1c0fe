// Package enforce implements the quota enforcement decision engine.
//
// # Overview
//
// Given a project id and a set of requested resource deltas, the engine
// decides whether granting those deltas would exceed the project's limits.
// Limits come from an external registry (pkg/registry) with two-tier
// precedence: a project-specific override wins over the registered default,
// and a resource with neither fails closed. Current usage comes from a
// caller-supplied UsageFunc, fetched fresh on every check.
//
// # Decision semantics
//
// Every resource in the catalog is checked on every call, whether or not the
// caller supplied a delta for it; missing deltas count as zero, so an empty
// delta map expresses "check current usage only". The predicate is strictly
// usage + delta > limit: sitting exactly at the limit is allowed. Resources
// are checked in lexicographic order and the first violation aborts the
// check, so the reported violation is deterministic.
//
// # Races
//
// Enforcement is a pure check. Nothing is reserved on success, and two
// clients can race between a passing check and the actual resource creation.
// Callers that want protection re-run the check with the same deltas after
// creating the resources and roll back if it now fails.
package enforce
