// internal/asset/projection.go
package asset

import (
	"context"
	"fmt"
	"sync"

	"grccore/internal/domain"
	"grccore/internal/platform/metrics"
)

// StateCountProjection maintains a per-lifecycle-state asset count from the
// event stream and mirrors it into a Prometheus gauge. It decodes payloads
// through the closed registry, so schema drift surfaces as ErrMalformedEvent
// instead of a silent misread.
//
// Replay-safe as long as the projection is reset first: applying the same
// stream twice from a fresh instance yields the same counts.
type StateCountProjection struct {
	mu       sync.Mutex
	registry *domain.Registry
	metrics  *metrics.AssetProjection
	counts   map[Lifecycle]int
}

func NewStateCountProjection(registry *domain.Registry, m *metrics.AssetProjection) *StateCountProjection {
	return &StateCountProjection{
		registry: registry,
		metrics:  m,
		counts:   map[Lifecycle]int{},
	}
}

// Register subscribes the projection to every asset event type.
func (p *StateCountProjection) Register(bus *domain.EventBus) {
	for _, eventType := range []string{EventAssetCreated, EventAssetActivated, EventAssetArchived} {
		bus.Subscribe(eventType, p)
	}
}

func (p *StateCountProjection) Name() string { return "asset-state-counts" }

func (p *StateCountProjection) Handle(ctx context.Context, event domain.Event) error {
	payload, err := p.registry.DecodePayload(event.EventType, event.Payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch pl := payload.(type) {
	case *CreatedPayload:
		p.counts[pl.State]++
	case *ActivatedPayload:
		p.counts[Draft]--
		p.counts[pl.State]++
	case *ArchivedPayload:
		p.counts[InUse]--
		p.counts[pl.State]++
	default:
		return fmt.Errorf("unexpected payload type %T for %s", payload, event.EventType)
	}
	if p.metrics != nil {
		for state, n := range p.counts {
			p.metrics.ByState.WithLabelValues(string(state)).Set(float64(n))
		}
	}
	return nil
}

// Counts returns a copy of the current per-state counts.
func (p *StateCountProjection) Counts() map[Lifecycle]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[Lifecycle]int, len(p.counts))
	for k, v := range p.counts {
		out[k] = v
	}
	return out
}

// Reset clears the counts, typically right before a replay.
func (p *StateCountProjection) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts = map[Lifecycle]int{}
}

var _ domain.Handler = (*StateCountProjection)(nil)
