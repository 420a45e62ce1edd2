// internal/domain/memory_repository.go
package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type memoryState struct {
	version int
	data    []byte
}

// MemoryRepository implements the full save contract against in-process
// maps: version check, state snapshot, event append and publish happen under
// one mutex, mirroring the single transaction of the relational repository.
// Used by tests and by the memory storage mode of the server.
type MemoryRepository[T Aggregate] struct {
	mu     sync.Mutex
	store  *MemoryEventStore
	bus    *EventBus
	newFn  func() T
	states map[uuid.UUID]memoryState
}

// NewMemoryRepository builds a repository for one aggregate type. newFn
// returns a zero aggregate for rehydration; bus may be nil when nothing
// subscribes.
func NewMemoryRepository[T Aggregate](store *MemoryEventStore, bus *EventBus, newFn func() T) *MemoryRepository[T] {
	return &MemoryRepository[T]{
		store:  store,
		bus:    bus,
		newFn:  newFn,
		states: map[uuid.UUID]memoryState{},
	}
}

func (r *MemoryRepository[T]) GetByID(ctx context.Context, id uuid.UUID) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rehydrateLocked(id)
}

func (r *MemoryRepository[T]) rehydrateLocked(id uuid.UUID) (T, error) {
	var zero T
	state, ok := r.states[id]
	if !ok {
		return zero, ErrNotFound
	}
	aggregate := r.newFn()
	if err := json.Unmarshal(state.data, aggregate); err != nil {
		return zero, fmt.Errorf("rehydrate aggregate %s: %w", id, err)
	}
	aggregate.SetVersion(state.version)
	return aggregate, nil
}

func (r *MemoryRepository[T]) GetAll(ctx context.Context) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.states))
	for id := range r.states {
		aggregate, err := r.rehydrateLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, aggregate)
	}
	return out, nil
}

func (r *MemoryRepository[T]) Save(ctx context.Context, aggregate T) error {
	events := aggregate.UncommittedEvents()
	if len(events) == 0 {
		return nil
	}

	loaded := aggregate.AggregateVersion()
	id := aggregate.AggregateID()

	r.mu.Lock()
	current, exists := r.states[id]
	if exists && current.version != loaded {
		r.mu.Unlock()
		return &ConcurrencyConflictError{AggregateID: id, Expected: loaded, Actual: current.version}
	}
	if !exists && loaded != 0 {
		r.mu.Unlock()
		return &ConcurrencyConflictError{AggregateID: id, Expected: loaded, Actual: 0}
	}

	aggregate.SetVersion(loaded + len(events))
	data, err := json.Marshal(aggregate)
	if err != nil {
		aggregate.SetVersion(loaded)
		r.mu.Unlock()
		return fmt.Errorf("snapshot aggregate %s: %w", id, err)
	}
	if err := r.store.AppendBatch(ctx, events); err != nil {
		aggregate.SetVersion(loaded)
		r.mu.Unlock()
		return err
	}
	r.states[id] = memoryState{version: aggregate.AggregateVersion(), data: data}
	r.mu.Unlock()

	aggregate.ClearUncommitted()
	if r.bus != nil {
		for _, event := range events {
			// already appended above; handlers only need the fan-out
			if err := r.bus.Publish(ctx, event, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *MemoryRepository[T]) Delete(ctx context.Context, aggregate T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, aggregate.AggregateID())
	return nil
}

func (r *MemoryRepository[T]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.states[id]
	return ok, nil
}

func (r *MemoryRepository[T]) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states), nil
}

var _ Repository[Aggregate] = (*MemoryRepository[Aggregate])(nil)
