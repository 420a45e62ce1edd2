// internal/domain/repository.go
package domain

import (
	"context"

	"github.com/google/uuid"
)

// Repository gives collection-style access to aggregates of one type.
//
// Save owns the central persistence contract, all within one transaction
// against the backing store: compare the persisted version against the
// version the aggregate was loaded at (*ConcurrencyConflictError on
// mismatch, nothing persisted or published), write the aggregate's current
// state with version advanced by the number of buffered events, append every
// buffered event to the event store in raise order, then after commit
// publish them non-durably on the bus and clear the buffer. A failed write
// rolls the whole transaction back and leaves the buffer intact so the
// caller can retry.
type Repository[T Aggregate] interface {
	// GetByID loads the latest persisted state, with the version set so a
	// later Save concurrency check is meaningful. Returns ErrNotFound when
	// no aggregate exists for the id.
	GetByID(ctx context.Context, id uuid.UUID) (T, error)
	// GetAll materializes the full collection. Filtering and pagination
	// belong to a query layer outside this core.
	GetAll(ctx context.Context) ([]T, error)
	Save(ctx context.Context, aggregate T) error
	// Delete removes persisted state. No deletion event is appended here; an
	// aggregate wanting a durable trace raises one before calling Delete.
	Delete(ctx context.Context, aggregate T) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context) (int, error)
}
