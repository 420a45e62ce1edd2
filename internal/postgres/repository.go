// internal/postgres/repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"grccore/internal/domain"
)

// StateMapper supplies the per-aggregate SQL: each aggregate type owns a
// current-state table with an id primary key and a version column, and the
// mapper knows how to move the aggregate in and out of it. Every method runs
// on the DBTX it is handed so the repository controls transaction scope.
type StateMapper[T domain.Aggregate] interface {
	Table() string
	EnsureSchema(ctx context.Context, q DBTX) error
	Insert(ctx context.Context, q DBTX, aggregate T) error
	Update(ctx context.Context, q DBTX, aggregate T) error
	SelectByID(ctx context.Context, q DBTX, id uuid.UUID) (T, error)
	SelectAll(ctx context.Context, q DBTX) ([]T, error)
}

// Repository persists aggregates of one type with the event-sourced save
// contract: version check, state write and event appends share one
// serializable transaction; publish happens only after commit.
type Repository[T domain.Aggregate] struct {
	db     *sql.DB
	events *EventStore
	bus    *domain.EventBus
	mapper StateMapper[T]
	tracer trace.Tracer
	log    *zap.Logger
}

func NewRepository[T domain.Aggregate](
	db *sql.DB,
	events *EventStore,
	bus *domain.EventBus,
	mapper StateMapper[T],
	log *zap.Logger,
) *Repository[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository[T]{
		db:     db,
		events: events,
		bus:    bus,
		mapper: mapper,
		tracer: otel.Tracer("grccore/postgres"),
		log:    log.With(zap.String("repository", mapper.Table())),
	}
}

func (r *Repository[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	return r.mapper.SelectByID(ctx, r.db, id)
}

func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	return r.mapper.SelectAll(ctx, r.db)
}

func (r *Repository[T]) Save(ctx context.Context, aggregate T) error {
	events := aggregate.UncommittedEvents()
	if len(events) == 0 {
		return nil
	}

	id := aggregate.AggregateID()
	loaded := aggregate.AggregateVersion()

	ctx, span := r.tracer.Start(ctx, "repository.save",
		trace.WithAttributes(
			attribute.String("aggregate.id", id.String()),
			attribute.String("aggregate.type", aggregate.AggregateType()),
			attribute.Int("expected.version", loaded),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Re-read the persisted version under lock and compare against the
	// version this instance was loaded at.
	var current int
	exists := true
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT version FROM %s WHERE id = $1 FOR UPDATE", r.mapper.Table()),
		id,
	).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		exists = false
	case err != nil:
		return fmt.Errorf("read persisted version: %w", err)
	}
	if exists && current != loaded {
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return &domain.ConcurrencyConflictError{AggregateID: id, Expected: loaded, Actual: current}
	}
	if !exists && loaded != 0 {
		span.SetAttributes(attribute.Bool("conflict.detected", true))
		return &domain.ConcurrencyConflictError{AggregateID: id, Expected: loaded, Actual: 0}
	}

	aggregate.SetVersion(loaded + len(events))
	if exists {
		err = r.mapper.Update(ctx, tx, aggregate)
	} else {
		err = r.mapper.Insert(ctx, tx, aggregate)
	}
	if err != nil {
		aggregate.SetVersion(loaded)
		return fmt.Errorf("persist aggregate state: %w", err)
	}

	for _, event := range events {
		if err := r.events.AppendTx(ctx, tx, event); err != nil {
			aggregate.SetVersion(loaded)
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		aggregate.SetVersion(loaded)
		return fmt.Errorf("commit transaction: %w", err)
	}

	aggregate.ClearUncommitted()
	r.log.Debug("aggregate saved",
		zap.String("aggregate_id", id.String()),
		zap.Int("version", aggregate.AggregateVersion()),
		zap.Int("events", len(events)),
	)

	if r.bus != nil {
		for _, event := range events {
			// appended in the transaction above, so fan-out only
			if err := r.bus.Publish(ctx, event, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Repository[T]) Delete(ctx context.Context, aggregate T) error {
	id := aggregate.AggregateID()
	_, err := r.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.mapper.Table()),
		id,
	)
	if err != nil {
		return fmt.Errorf("delete aggregate %s: %w", id, err)
	}
	return nil
}

func (r *Repository[T]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)", r.mapper.Table()),
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query exists: %w", err)
	}
	return exists, nil
}

func (r *Repository[T]) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", r.mapper.Table()),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("query count: %w", err)
	}
	return count, nil
}

var _ domain.Repository[domain.Aggregate] = (*Repository[domain.Aggregate])(nil)
