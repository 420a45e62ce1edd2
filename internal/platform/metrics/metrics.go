// internal/platform/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bus holds the event bus counters.
type Bus struct {
	Published       prometheus.Counter
	HandlerFailures prometheus.Counter
	Replayed        prometheus.Counter
}

// NewBus creates and registers the event bus metrics on reg.
func NewBus(reg prometheus.Registerer) *Bus {
	factory := promauto.With(reg)
	return &Bus{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "grccore_events_published_total",
			Help: "Total number of domain events published on the bus",
		}),
		HandlerFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "grccore_event_handler_failures_total",
			Help: "Total number of handler errors or panics during dispatch",
		}),
		Replayed: factory.NewCounter(prometheus.CounterOpts{
			Name: "grccore_events_replayed_total",
			Help: "Total number of domain events re-dispatched during replay",
		}),
	}
}

// AssetProjection holds the asset read-model gauges.
type AssetProjection struct {
	ByState *prometheus.GaugeVec
}

// NewAssetProjection creates and registers the asset projection metrics.
func NewAssetProjection(reg prometheus.Registerer) *AssetProjection {
	factory := promauto.With(reg)
	return &AssetProjection{
		ByState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "grccore_assets_by_state",
			Help: "Number of assets per lifecycle state in the read model",
		}, []string{"state"}),
	}
}
