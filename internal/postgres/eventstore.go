// internal/postgres/eventstore.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"grccore/internal/domain"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so append can run inside a
// repository transaction or standalone.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const (
	eventsPKConstraint     = "domain_events_pkey"
	eventsStreamConstraint = "domain_events_stream_key"
)

const eventsSchema = `
CREATE TABLE IF NOT EXISTS domain_events (
	event_id UUID PRIMARY KEY,
	aggregate_id UUID NOT NULL,
	aggregate_version INT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	CONSTRAINT domain_events_stream_key UNIQUE (aggregate_id, aggregate_version)
);
CREATE INDEX IF NOT EXISTS domain_events_aggregate_id_idx ON domain_events (aggregate_id);
CREATE INDEX IF NOT EXISTS domain_events_event_type_idx ON domain_events (event_type);
`

// EventStore is the durable append-only event log backed by PostgreSQL.
// Uniqueness of event ids and of (aggregate_id, aggregate_version) is
// enforced by constraints, which makes the optimistic-concurrency check
// race-free across worker processes.
type EventStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{
		db:     db,
		tracer: otel.Tracer("grccore/postgres"),
	}
}

// EnsureSchema creates the events table and its indexes if missing.
func (s *EventStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, eventsSchema); err != nil {
		return fmt.Errorf("ensure events schema: %w", err)
	}
	return nil
}

// Append persists one event row in its own implicit transaction.
func (s *EventStore) Append(ctx context.Context, event domain.Event) error {
	ctx, span := s.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("event.id", event.EventID.String()),
			attribute.String("event.type", event.EventType),
			attribute.String("aggregate.id", event.AggregateID.String()),
			attribute.Int("aggregate.version", event.AggregateVersion),
		),
	)
	defer span.End()
	return s.AppendTx(ctx, s.db, event)
}

// AppendTx persists one event row on the given transaction or connection.
// The repository uses it to append inside the same transaction that writes
// aggregate state.
func (s *EventStore) AppendTx(ctx context.Context, q DBTX, event domain.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO domain_events (event_id, aggregate_id, aggregate_version, occurred_at, event_type, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, event.EventID, event.AggregateID, event.AggregateVersion, event.OccurredAt, event.EventType, []byte(event.Payload))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case eventsPKConstraint:
				return &domain.DuplicateEventError{EventID: event.EventID}
			case eventsStreamConstraint:
				return &domain.OutOfOrderError{
					AggregateID:      event.AggregateID,
					AggregateVersion: event.AggregateVersion,
				}
			}
		}
		return fmt.Errorf("insert event %s: %w", event.EventID, err)
	}
	return nil
}

// EventsFor returns all events for the aggregate ordered by version.
func (s *EventStore) EventsFor(ctx context.Context, aggregateID uuid.UUID) ([]domain.Event, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.events_for",
		trace.WithAttributes(attribute.String("aggregate.id", aggregateID.String())),
	)
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, aggregate_id, aggregate_version, occurred_at, event_type, payload
		FROM domain_events
		WHERE aggregate_id = $1
		ORDER BY aggregate_version ASC
	`, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

// EventsOfType scans events of one type across aggregates; per-aggregate
// version order is preserved by the sort. A zero since returns everything.
func (s *EventStore) EventsOfType(ctx context.Context, eventType string, since time.Time) ([]domain.Event, error) {
	ctx, span := s.tracer.Start(ctx, "eventstore.events_of_type",
		trace.WithAttributes(attribute.String("event.type", eventType)),
	)
	defer span.End()

	query := `
		SELECT event_id, aggregate_id, aggregate_version, occurred_at, event_type, payload
		FROM domain_events
		WHERE event_type = $1
	`
	args := []any{eventType}
	if !since.IsZero() {
		query += " AND occurred_at >= $2"
		args = append(args, since)
	}
	query += " ORDER BY aggregate_id, aggregate_version ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events by type: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload []byte
		if err := rows.Scan(
			&event.EventID,
			&event.AggregateID,
			&event.AggregateVersion,
			&event.OccurredAt,
			&event.EventType,
			&payload,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		event.Payload = payload
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

var _ domain.EventStore = (*EventStore)(nil)
