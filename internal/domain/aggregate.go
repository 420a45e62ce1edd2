// internal/domain/aggregate.go
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Aggregate is the contract every aggregate root satisfies. Concrete types
// embed Root and add their own fields, lifecycle state and domain methods.
type Aggregate interface {
	AggregateID() uuid.UUID
	AggregateType() string
	// AggregateVersion is the persisted version this instance was loaded at;
	// 0 means the aggregate has never been saved.
	AggregateVersion() int
	SetVersion(int)
	UncommittedEvents() []Event
	ClearUncommitted()
}

// Root is the embeddable aggregate base: identity, the optimistic-concurrency
// version and the buffer of events raised since the aggregate was loaded.
// The buffer is transient and is never part of persisted state.
type Root struct {
	ID      uuid.UUID `json:"id"`
	Version int       `json:"version"`

	uncommitted []Event
}

func (r *Root) AggregateID() uuid.UUID { return r.ID }
func (r *Root) AggregateVersion() int  { return r.Version }
func (r *Root) SetVersion(v int)       { r.Version = v }

// Raise records a new event in the uncommitted buffer. The event is bound to
// this aggregate's id and to the version the aggregate will hold once every
// buffered event is persisted. Persisted state is not touched.
func (r *Root) Raise(eventType string, payload any) error {
	if r.ID == uuid.Nil {
		return fmt.Errorf("raise %s: aggregate has no id", eventType)
	}
	next := r.Version + len(r.uncommitted) + 1
	event, err := NewEvent(r.ID, next, eventType, payload)
	if err != nil {
		return err
	}
	r.uncommitted = append(r.uncommitted, event)
	return nil
}

// UncommittedEvents returns a copy of the buffer in raise order.
func (r *Root) UncommittedEvents() []Event {
	out := make([]Event, len(r.uncommitted))
	copy(out, r.uncommitted)
	return out
}

func (r *Root) ClearUncommitted() { r.uncommitted = nil }

// Guard checks that current is one of the states action is allowed from.
// Domain methods call it before mutating anything, so a refused transition
// raises no event.
func Guard(action, current string, allowed ...string) error {
	for _, s := range allowed {
		if current == s {
			return nil
		}
	}
	return &InvalidTransitionError{State: current, Action: action}
}
