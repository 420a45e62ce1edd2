// internal/domain/store_test.go
package domain

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEvent(t *testing.T, aggregateID uuid.UUID, version int, eventType string) Event {
	t.Helper()
	event, err := NewEvent(aggregateID, version, eventType, map[string]int{"v": version})
	require.NoError(t, err)
	return event
}

func TestMemoryStoreAppendAndRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	aggregateID := uuid.New()

	first := mustEvent(t, aggregateID, 1, "Created")
	second := mustEvent(t, aggregateID, 2, "Updated")

	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	events, err := store.EventsFor(ctx, aggregateID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].AggregateVersion)
	assert.Equal(t, 2, events[1].AggregateVersion)

	// restartable: a second read yields the same sequence from version 1
	again, err := store.EventsFor(ctx, aggregateID)
	require.NoError(t, err)
	assert.Equal(t, events, again)
}

func TestMemoryStoreDuplicateEventID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	event := mustEvent(t, uuid.New(), 1, "Created")

	require.NoError(t, store.Append(ctx, event))

	err := store.Append(ctx, event)
	var duplicate *DuplicateEventError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, event.EventID, duplicate.EventID)
}

func TestMemoryStoreOutOfOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	aggregateID := uuid.New()

	require.NoError(t, store.Append(ctx, mustEvent(t, aggregateID, 1, "Created")))

	// a different event claiming version 1 simulates a concurrent writer
	err := store.Append(ctx, mustEvent(t, aggregateID, 1, "Created"))
	var outOfOrder *OutOfOrderError
	require.ErrorAs(t, err, &outOfOrder)
	assert.Equal(t, aggregateID, outOfOrder.AggregateID)
	assert.Equal(t, 1, outOfOrder.AggregateVersion)
}

func TestMemoryStoreAppendBatchAtomic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	aggregateID := uuid.New()

	require.NoError(t, store.Append(ctx, mustEvent(t, aggregateID, 1, "Created")))

	// second element conflicts, so nothing from the batch may land
	batch := []Event{
		mustEvent(t, aggregateID, 2, "Updated"),
		mustEvent(t, aggregateID, 1, "Created"),
	}
	err := store.AppendBatch(ctx, batch)
	var outOfOrder *OutOfOrderError
	require.ErrorAs(t, err, &outOfOrder)

	events, err := store.EventsFor(ctx, aggregateID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestMemoryStoreEventsOfType(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	firstAggregate := uuid.New()
	secondAggregate := uuid.New()

	require.NoError(t, store.Append(ctx, mustEvent(t, firstAggregate, 1, "Created")))
	require.NoError(t, store.Append(ctx, mustEvent(t, firstAggregate, 2, "Created")))
	require.NoError(t, store.Append(ctx, mustEvent(t, secondAggregate, 1, "Created")))
	require.NoError(t, store.Append(ctx, mustEvent(t, secondAggregate, 2, "Archived")))

	created, err := store.EventsOfType(ctx, "Created", time.Time{})
	require.NoError(t, err)
	require.Len(t, created, 3)

	// per-aggregate version order must hold even across aggregates
	seen := map[uuid.UUID]int{}
	for _, e := range created {
		assert.Greater(t, e.AggregateVersion, seen[e.AggregateID])
		seen[e.AggregateID] = e.AggregateVersion
	}

	archived, err := store.EventsOfType(ctx, "Archived", time.Time{})
	require.NoError(t, err)
	assert.Len(t, archived, 1)

	none, err := store.EventsOfType(ctx, "Created", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}
