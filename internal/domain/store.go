// internal/domain/store.go
package domain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventStore is the append-only log of domain events, the source of truth
// for aggregate history. Append is the only write; there is no update or
// delete in the steady-state contract.
type EventStore interface {
	// Append persists one event. It fails with *DuplicateEventError if the
	// event id already exists and with *OutOfOrderError if another event
	// already claims the same (aggregate id, aggregate version) slot.
	Append(ctx context.Context, event Event) error
	// EventsFor returns all events for an aggregate ordered by aggregate
	// version ascending, always starting from version 1.
	EventsFor(ctx context.Context, aggregateID uuid.UUID) ([]Event, error)
	// EventsOfType returns events of one type across aggregates, for
	// cross-aggregate projections. Events from the same aggregate keep
	// version order; no order is guaranteed across aggregates. A zero since
	// returns everything.
	EventsOfType(ctx context.Context, eventType string, since time.Time) ([]Event, error)
}

// MemoryEventStore keeps the event log in process memory with the same
// uniqueness semantics the relational store enforces through constraints.
// Used by tests and by the in-memory repository.
type MemoryEventStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]struct{}
	streams map[uuid.UUID][]Event
}

func NewMemoryEventStore() *MemoryEventStore {
	return &MemoryEventStore{
		byID:    map[uuid.UUID]struct{}{},
		streams: map[uuid.UUID][]Event{},
	}
}

func (s *MemoryEventStore) Append(ctx context.Context, event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(event)
}

// AppendBatch appends all events or none of them, preserving order. The
// in-memory equivalent of appending inside one transaction.
func (s *MemoryEventStore) AppendBatch(ctx context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	type slot struct {
		aggregateID uuid.UUID
		version     int
	}
	seenIDs := map[uuid.UUID]struct{}{}
	seenSlots := map[slot]struct{}{}
	for _, e := range events {
		if err := s.checkLocked(e); err != nil {
			return err
		}
		if _, ok := seenIDs[e.EventID]; ok {
			return &DuplicateEventError{EventID: e.EventID}
		}
		sl := slot{e.AggregateID, e.AggregateVersion}
		if _, ok := seenSlots[sl]; ok {
			return &OutOfOrderError{AggregateID: e.AggregateID, AggregateVersion: e.AggregateVersion}
		}
		seenIDs[e.EventID] = struct{}{}
		seenSlots[sl] = struct{}{}
	}
	for _, e := range events {
		if err := s.appendLocked(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryEventStore) checkLocked(event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if _, ok := s.byID[event.EventID]; ok {
		return &DuplicateEventError{EventID: event.EventID}
	}
	for _, existing := range s.streams[event.AggregateID] {
		if existing.AggregateVersion == event.AggregateVersion {
			return &OutOfOrderError{AggregateID: event.AggregateID, AggregateVersion: event.AggregateVersion}
		}
	}
	return nil
}

func (s *MemoryEventStore) appendLocked(event Event) error {
	if err := s.checkLocked(event); err != nil {
		return err
	}
	s.byID[event.EventID] = struct{}{}
	stream := append(s.streams[event.AggregateID], event)
	sort.SliceStable(stream, func(i, j int) bool {
		return stream[i].AggregateVersion < stream[j].AggregateVersion
	})
	s.streams[event.AggregateID] = stream
	return nil
}

func (s *MemoryEventStore) EventsFor(ctx context.Context, aggregateID uuid.UUID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stream := s.streams[aggregateID]
	out := make([]Event, len(stream))
	copy(out, stream)
	return out, nil
}

func (s *MemoryEventStore) EventsOfType(ctx context.Context, eventType string, since time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, stream := range s.streams {
		for _, e := range stream {
			if e.EventType != eventType {
				continue
			}
			if !since.IsZero() && e.OccurredAt.Before(since) {
				continue
			}
			out = append(out, e)
		}
	}
	return out, nil
}

var _ EventStore = (*MemoryEventStore)(nil)
