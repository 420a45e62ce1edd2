// internal/domain/bus.go
package domain

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"grccore/internal/platform/metrics"
)

// Handler reacts to one domain event. Handlers are registered per event type
// and invoked synchronously in registration order. The name identifies the
// handler in failure logs.
type Handler interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

type handlerFunc struct {
	name string
	fn   func(ctx context.Context, event Event) error
}

func (h handlerFunc) Name() string { return h.name }

func (h handlerFunc) Handle(ctx context.Context, event Event) error { return h.fn(ctx, event) }

// HandlerFunc adapts a function to the Handler interface.
func HandlerFunc(name string, fn func(ctx context.Context, event Event) error) Handler {
	return handlerFunc{name: name, fn: fn}
}

// EventBus routes events to subscribed handlers, optionally persisting them
// first. It is an explicit dependency constructed once at process start and
// passed to whoever publishes; there is no package-level instance.
//
// Registration happens during process initialization; steady-state traffic
// only reads the handler table.
type EventBus struct {
	mu       sync.RWMutex
	log      *zap.Logger
	store    EventStore
	handlers map[string][]Handler
	metrics  *metrics.Bus
}

func NewEventBus(log *zap.Logger, store EventStore, m *metrics.Bus) *EventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventBus{
		log:      log,
		store:    store,
		handlers: map[string][]Handler{},
		metrics:  m,
	}
}

// Subscribe registers a handler for one event type. Multiple handlers may
// subscribe to the same type; dispatch order is registration order.
func (b *EventBus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish delivers an event to every handler subscribed to its type. When
// durable is true the event is appended to the store first; an append
// failure propagates and no handler runs, so handlers can always assume a
// durably published event is already persisted.
//
// Handler failures are logged and never abort dispatch to later handlers:
// the append has already succeeded and must not be undone by a projection
// bug.
func (b *EventBus) Publish(ctx context.Context, event Event, durable bool) error {
	if durable {
		if err := b.store.Append(ctx, event); err != nil {
			return err
		}
	}
	if b.metrics != nil {
		b.metrics.Published.Inc()
	}
	b.dispatch(ctx, event)
	return nil
}

// Replay re-dispatches every stored event for an aggregate, in version
// order, to the currently registered handlers without re-appending. A
// failure on one event is reported and the rest of the sequence still runs,
// so a single bad legacy event cannot block rebuilding a projection.
func (b *EventBus) Replay(ctx context.Context, aggregateID uuid.UUID) error {
	events, err := b.store.EventsFor(ctx, aggregateID)
	if err != nil {
		return err
	}
	for _, event := range events {
		b.dispatch(ctx, event)
		if b.metrics != nil {
			b.metrics.Replayed.Inc()
		}
	}
	b.log.Debug("replayed aggregate events",
		zap.String("aggregate_id", aggregateID.String()),
		zap.Int("events", len(events)),
	)
	return nil
}

func (b *EventBus) dispatch(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.EventType]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(ctx, h, event)
	}
}

func (b *EventBus) invoke(ctx context.Context, h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			if b.metrics != nil {
				b.metrics.HandlerFailures.Inc()
			}
			b.log.Error("event handler panicked",
				zap.String("handler", h.Name()),
				zap.String("event_id", event.EventID.String()),
				zap.String("event_type", event.EventType),
				zap.Any("panic", r),
			)
		}
	}()
	if err := h.Handle(ctx, event); err != nil {
		if b.metrics != nil {
			b.metrics.HandlerFailures.Inc()
		}
		b.log.Error("event handler failed",
			zap.String("handler", h.Name()),
			zap.String("event_id", event.EventID.String()),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}
