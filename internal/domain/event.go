// internal/domain/event.go
package domain

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is an immutable fact about an aggregate. The envelope carries routing
// and ordering metadata; everything event-specific lives in Payload, which is
// self-contained so handlers never need to refetch the aggregate.
type Event struct {
	EventID          uuid.UUID       `json:"event_id"`
	AggregateID      uuid.UUID       `json:"aggregate_id"`
	AggregateVersion int             `json:"aggregate_version"`
	OccurredAt       time.Time       `json:"occurred_at"`
	EventType        string          `json:"event_type"`
	Payload          json.RawMessage `json:"payload"`
}

// NewEvent constructs an event, assigning the event id and timestamp. The
// aggregate version is the version of the aggregate after the event applies.
func NewEvent(aggregateID uuid.UUID, aggregateVersion int, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		EventID:          uuid.New(),
		AggregateID:      aggregateID,
		AggregateVersion: aggregateVersion,
		OccurredAt:       time.Now().UTC(),
		EventType:        eventType,
		Payload:          data,
	}, nil
}

func (e Event) Validate() error {
	if e.EventID == uuid.Nil {
		return fmt.Errorf("event id is empty")
	}
	if e.AggregateID == uuid.Nil {
		return fmt.Errorf("aggregate id is empty")
	}
	if e.AggregateVersion < 1 {
		return fmt.Errorf("aggregate version %d is below 1", e.AggregateVersion)
	}
	if e.EventType == "" {
		return fmt.Errorf("event type is empty")
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("occurred at is zero")
	}
	return nil
}

// Record is the flat wire/storage form of an event: string ids, RFC 3339
// timestamp, verbatim payload.
type Record struct {
	EventID          string          `json:"event_id"`
	AggregateID      string          `json:"aggregate_id"`
	AggregateVersion int             `json:"aggregate_version"`
	OccurredAt       string          `json:"occurred_at"`
	EventType        string          `json:"event_type"`
	Payload          json.RawMessage `json:"payload"`
}

// Record converts the event to its wire form.
func (e Event) Record() Record {
	return Record{
		EventID:          e.EventID.String(),
		AggregateID:      e.AggregateID.String(),
		AggregateVersion: e.AggregateVersion,
		OccurredAt:       e.OccurredAt.Format(time.RFC3339Nano),
		EventType:        e.EventType,
		Payload:          e.Payload,
	}
}

// EventFromRecord is the inverse of Event.Record. The registry acts as the
// closed set of known event types; records carrying an unregistered type or
// missing required fields fail with ErrMalformedEvent.
func EventFromRecord(r Record, registry *Registry) (Event, error) {
	if r.EventType == "" {
		return Event{}, fmt.Errorf("%w: event_type is missing", ErrMalformedEvent)
	}
	if !registry.Known(r.EventType) {
		return Event{}, fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, r.EventType)
	}
	eventID, err := uuid.Parse(r.EventID)
	if err != nil {
		return Event{}, fmt.Errorf("%w: bad event_id %q", ErrMalformedEvent, r.EventID)
	}
	aggregateID, err := uuid.Parse(r.AggregateID)
	if err != nil {
		return Event{}, fmt.Errorf("%w: bad aggregate_id %q", ErrMalformedEvent, r.AggregateID)
	}
	if r.AggregateVersion < 1 {
		return Event{}, fmt.Errorf("%w: aggregate_version %d is below 1", ErrMalformedEvent, r.AggregateVersion)
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, r.OccurredAt)
	if err != nil {
		return Event{}, fmt.Errorf("%w: bad occurred_at %q", ErrMalformedEvent, r.OccurredAt)
	}
	return Event{
		EventID:          eventID,
		AggregateID:      aggregateID,
		AggregateVersion: r.AggregateVersion,
		OccurredAt:       occurredAt,
		EventType:        r.EventType,
		Payload:          r.Payload,
	}, nil
}

// Registry maps event type tags to payload constructors so persisted events
// can be decoded into typed payloads. Each bounded context registers its
// events during process initialization; there is no reflection-based lookup,
// so the set of decodable events is closed.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]func() any
}

func NewRegistry() *Registry {
	return &Registry{ctors: map[string]func() any{}}
}

func (r *Registry) Register(eventType string, ctor func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[eventType] = ctor
}

func (r *Registry) Known(eventType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[eventType]
	return ok
}

// DecodePayload unmarshals an event payload into a fresh instance of the
// registered payload type.
func (r *Registry) DecodePayload(eventType string, payload json.RawMessage) (any, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[eventType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformedEvent, eventType)
	}
	p := ctor()
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, p); err != nil {
			return nil, fmt.Errorf("%w: decode %s payload: %v", ErrMalformedEvent, eventType, err)
		}
	}
	return p, nil
}
