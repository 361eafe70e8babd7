// Package schederr defines the typed error kinds shared across the
// reconciliation engine (pkg/cluster, pkg/resolvers, pkg/scheduler,
// pkg/events) and the surfaces that classify them into status codes
// (pkg/api). It has no dependencies of its own so every layer, including
// the lowest one, can import it without creating a cycle.
package schederr

import "errors"

// NotFound is returned when a repository lookup misses. Surfaced as 404.
type NotFound struct {
	Kind string
	ID   string
}

func (e *NotFound) Error() string {
	return e.Kind + " not found: " + e.ID
}

// Forbidden is returned when an event targets an entity in a disallowed
// state. Surfaced as 403.
type Forbidden struct {
	Reason string
}

func (e *Forbidden) Error() string {
	return "forbidden: " + e.Reason
}

// Validation is returned on an input constraint violation (incomplete
// resources where completeness is required, a status outside the set an
// endpoint permits, negative values). Surfaced as 422.
type Validation struct {
	Reason string
}

func (e *Validation) Error() string {
	return "validation: " + e.Reason
}

// ErrResourceUnderflow marks a resource subtraction that would have gone
// negative. Nothing in this module returns it: resource.Vector.Sub reports
// underflow as resource.ErrUnderflow, which pkg/cluster wraps in a
// Scheduling error.
var ErrResourceUnderflow = errors.New("resource underflow")

// Scheduling is an internal pass-level failure: an unresolved dirty
// entity, or available resources that went negative. It aborts and rolls
// back the whole pass; it never propagates to API callers of unrelated
// operations.
type Scheduling struct {
	Reason string
	Cause  error
}

func (e *Scheduling) Error() string {
	if e.Cause != nil {
		return "scheduling error: " + e.Reason + ": " + e.Cause.Error()
	}
	return "scheduling error: " + e.Reason
}

func (e *Scheduling) Unwrap() error { return e.Cause }

// NewScheduling builds a Scheduling error with the given reason and
// optional wrapped cause.
func NewScheduling(reason string, cause error) *Scheduling {
	return &Scheduling{Reason: reason, Cause: cause}
}
