// internal/domain/bus_test.go
package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingHandler captures the events it sees, optionally failing first.
type recordingHandler struct {
	name   string
	events []Event
	fail   error
	panics bool
}

func (h *recordingHandler) Name() string { return h.name }

func (h *recordingHandler) Handle(_ context.Context, event Event) error {
	if h.panics {
		panic("handler exploded")
	}
	h.events = append(h.events, event)
	return h.fail
}

func newBus(store EventStore) *EventBus {
	return NewEventBus(zap.NewNop(), store, nil)
}

func TestPublishWithoutStoreReachesHandlerOnce(t *testing.T) {
	ctx := context.Background()
	bus := newBus(NewMemoryEventStore())
	handler := &recordingHandler{name: "h1"}
	bus.Subscribe("FooCreated", handler)

	event := mustEvent(t, uuid.New(), 1, "FooCreated")
	require.NoError(t, bus.Publish(ctx, event, false))

	require.Len(t, handler.events, 1)
	assert.Equal(t, event, handler.events[0])
}

func TestPublishDispatchesInRegistrationOrder(t *testing.T) {
	ctx := context.Background()
	bus := newBus(NewMemoryEventStore())

	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		bus.Subscribe("FooCreated", HandlerFunc(name, func(context.Context, Event) error {
			order = append(order, name)
			return nil
		}))
	}

	require.NoError(t, bus.Publish(ctx, mustEvent(t, uuid.New(), 1, "FooCreated"), false))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestPublishDurableAppendsBeforeDispatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	bus := newBus(store)
	aggregateID := uuid.New()

	bus.Subscribe("FooCreated", HandlerFunc("checker", func(ctx context.Context, event Event) error {
		// the event must already be durable when a handler runs
		stored, err := store.EventsFor(ctx, aggregateID)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, mustEvent(t, aggregateID, 1, "FooCreated"), true))
}

func TestPublishDurableAppendFailureAbortsDispatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	bus := newBus(store)
	handler := &recordingHandler{name: "h1"}
	bus.Subscribe("FooCreated", handler)

	event := mustEvent(t, uuid.New(), 1, "FooCreated")
	require.NoError(t, bus.Publish(ctx, event, true))
	require.Len(t, handler.events, 1)

	// re-publishing the same event id must fail the append and fan out nothing
	err := bus.Publish(ctx, event, true)
	var duplicate *DuplicateEventError
	require.ErrorAs(t, err, &duplicate)
	assert.Len(t, handler.events, 1)
}

func TestHandlerFailureDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	bus := newBus(NewMemoryEventStore())

	failing := &recordingHandler{name: "failing", fail: errors.New("projection broken")}
	panicking := &recordingHandler{name: "panicking", panics: true}
	healthy := &recordingHandler{name: "healthy"}
	bus.Subscribe("FooCreated", failing)
	bus.Subscribe("FooCreated", panicking)
	bus.Subscribe("FooCreated", healthy)

	require.NoError(t, bus.Publish(ctx, mustEvent(t, uuid.New(), 1, "FooCreated"), false))

	assert.Len(t, failing.events, 1)
	assert.Len(t, healthy.events, 1)
}

func TestReplayDeliversStoredEventsInOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	bus := newBus(store)
	aggregateID := uuid.New()

	for v := 1; v <= 3; v++ {
		require.NoError(t, store.Append(ctx, mustEvent(t, aggregateID, v, "FooCreated")))
	}

	// two independent replays against fresh handlers see identical sequences
	first := &recordingHandler{name: "first"}
	bus.Subscribe("FooCreated", first)
	require.NoError(t, bus.Replay(ctx, aggregateID))

	second := &recordingHandler{name: "second"}
	bus.Subscribe("FooCreated", second)
	require.NoError(t, bus.Replay(ctx, aggregateID))

	require.Len(t, first.events, 6)
	require.Len(t, second.events, 3)
	assert.Equal(t, first.events[:3], second.events)
	for i, e := range second.events {
		assert.Equal(t, i+1, e.AggregateVersion)
	}

	// stored events were not re-appended by replay
	stored, err := store.EventsFor(ctx, aggregateID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestReplayContinuesPastFailingEvent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryEventStore()
	bus := newBus(store)
	aggregateID := uuid.New()

	for v := 1; v <= 3; v++ {
		require.NoError(t, store.Append(ctx, mustEvent(t, aggregateID, v, "FooCreated")))
	}

	var seen []int
	bus.Subscribe("FooCreated", HandlerFunc("flaky", func(_ context.Context, event Event) error {
		if event.AggregateVersion == 2 {
			return errors.New("bad legacy event")
		}
		seen = append(seen, event.AggregateVersion)
		return nil
	}))

	require.NoError(t, bus.Replay(ctx, aggregateID))
	assert.Equal(t, []int{1, 3}, seen)
}
