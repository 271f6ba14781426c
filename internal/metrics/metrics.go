// Package metrics exposes the exchange's Prometheus instrumentation.
// Grounded on the domain stack of vegaprotocol-vega, which wires
// prometheus/client_golang counters/gauges directly off business-logic
// call sites rather than through middleware, since the hot path here
// (the matching loop) isn't an HTTP handler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every counter/gauge the session controller updates;
// the matching engine itself records no metrics, so no extra locking is
// required beyond what's already held.
type Metrics struct {
	OrdersReceived  *prometheus.CounterVec
	MatchesTotal    *prometheus.CounterVec
	RejectionsTotal *prometheus.CounterVec
	ActiveClients   prometheus.Gauge
}

// New registers every metric against reg and returns the bundle.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_orders_received_total",
			Help: "Total market orders received, by side.",
		}, []string{"side"}),
		MatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_matches_total",
			Help: "Total matches produced, by ticker.",
		}, []string{"ticker"}),
		RejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "exchange_rejections_total",
			Help: "Total aggressor rejections, by reason.",
		}, []string{"reason"}),
		ActiveClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "exchange_active_clients",
			Help: "Number of clients currently marked active.",
		}),
	}
}

// NewUnregistered returns a Metrics bundle backed by a private registry,
// for tests that don't need to expose a /metrics endpoint.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
