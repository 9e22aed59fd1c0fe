package enforce

import (
	"context"
	"errors"
	"fmt"
)

// UsageFunc reports a project's current usage for a set of resources.
// It is supplied by the embedding application, which owns usage accounting.
// The returned map must contain an entry for every requested resource name;
// a missing entry fails the enforcement call with a ValidationError.
type UsageFunc func(ctx context.Context, projectID string, resources []string) (map[string]int64, error)

// Violation describes one over-limit condition found during a check.
// Violations are transient: they exist only for the duration of a single
// enforcement pass and are reported through ClaimExceedsLimitError.
type Violation struct {
	// ResourceName is the resource that would exceed its limit.
	ResourceName string

	// Usage is the project's current usage of the resource.
	Usage int64

	// Delta is the requested increment.
	Delta int64

	// Limit is the effective limit the claim was checked against.
	Limit int64
}

// Error sentinels for the enforce package.
var (
	// ErrValidation is the base error for malformed enforcement input.
	ErrValidation = errors.New("invalid enforcement input")

	// ErrLimitNotFound is the base error for unresolvable limits.
	ErrLimitNotFound = errors.New("limit not found")

	// ErrClaimExceedsLimit is the base error for rejected claims.
	ErrClaimExceedsLimit = errors.New("claim exceeds limit")
)

// ValidationError reports malformed input: an empty project id, a negative
// delta, a delta for a resource outside the catalog, or a usage callback
// response that omits a requested resource. Validation errors are surfaced
// before any decision is made and are never retried.
type ValidationError struct {
	// Reason is the human-readable cause.
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Reason
}

// Is reports whether target matches the validation error kind.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// LimitNotFoundError reports that a resource has neither a project override
// nor a registered default within the enforcement scope. The whole check
// fails closed.
type LimitNotFoundError struct {
	// ResourceName is the resource with no resolvable limit.
	ResourceName string
}

// Error implements the error interface.
func (e *LimitNotFoundError) Error() string {
	return fmt.Sprintf("can't find the limit for resource %s", e.ResourceName)
}

// Is reports whether target matches the limit-not-found error kind.
func (e *LimitNotFoundError) Is(target error) bool {
	return target == ErrLimitNotFound
}

// ClaimExceedsLimitError reports the first violation found in lexicographic
// resource order. Remaining violations, if any, are not reported in the same
// call; callers discover them by re-invoking the check after addressing the
// first.
type ClaimExceedsLimitError struct {
	Violation
}

// Error implements the error interface.
func (e *ClaimExceedsLimitError) Error() string {
	return fmt.Sprintf("%d %s have been used. Claiming %d %s would exceed the current limit of %d",
		e.Usage, e.ResourceName, e.Delta, e.ResourceName, e.Limit)
}

// Is reports whether target matches the claim-exceeds-limit error kind.
func (e *ClaimExceedsLimitError) Is(target error) bool {
	return target == ErrClaimExceedsLimit
}
