// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by repositories when no aggregate exists for an id.
	ErrNotFound = errors.New("aggregate not found")

	// ErrMalformedEvent is returned when a stored or wire-format event cannot
	// be decoded: the event type is not registered or required fields are
	// missing. Readers should quarantine the offending event rather than
	// abort an entire replay.
	ErrMalformedEvent = errors.New("malformed event")
)

// ConcurrencyConflictError indicates a stale aggregate: the persisted version
// no longer matches the version the aggregate was loaded at. The caller must
// reload and reapply its intent.
type ConcurrencyConflictError struct {
	AggregateID uuid.UUID
	Expected    int
	Actual      int
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrency conflict on aggregate %s: loaded version %d, persisted version %d",
		e.AggregateID, e.Expected, e.Actual)
}

// InvalidTransitionError indicates a domain method was called from a
// lifecycle state it is not valid in. Not retryable without changing intent.
type InvalidTransitionError struct {
	State  string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s from state %q", e.Action, e.State)
}

// ValidationError indicates malformed input to a domain method.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateEventError is returned by an event store append when the event id
// already exists. A retried append surfaces this instead of silently
// duplicating the event.
type DuplicateEventError struct {
	EventID uuid.UUID
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("event %s already appended", e.EventID)
}

// OutOfOrderError is returned by an event store append when another event
// already claims the same (aggregate id, aggregate version) slot. It means
// two writers raced for version N; the losing writer must reload.
type OutOfOrderError struct {
	AggregateID      uuid.UUID
	AggregateVersion int
}

func (e *OutOfOrderError) Error() string {
	return fmt.Sprintf("version %d of aggregate %s is already claimed by another event",
		e.AggregateVersion, e.AggregateID)
}
