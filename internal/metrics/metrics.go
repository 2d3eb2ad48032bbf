// Package metrics holds the Prometheus instruments for the auction server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups every auction instrument.  Each instance owns its registry
// so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	BidsAccepted      prometheus.Counter
	BidsRejected      *prometheus.CounterVec
	AuctionsStarted   prometheus.Counter
	AuctionsExpired   prometheus.Counter
	AuctionsConfirmed prometheus.Counter
	AuctionsCancelled prometheus.Counter
	HistoryDeleted    prometheus.Counter
	HighestBid        prometheus.Gauge
	WSClients         prometheus.Gauge
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		BidsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "auction_bids_accepted_total",
			Help: "Bids accepted by the auction core",
		}),
		BidsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "auction_bids_rejected_total",
			Help: "Bids rejected, by reason",
		}, []string{"reason"}),
		AuctionsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "auction_started_total",
			Help: "Lots put up for auction",
		}),
		AuctionsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "auction_expired_total",
			Help: "Bid rounds that ran out and now await confirmation",
		}),
		AuctionsConfirmed: f.NewCounter(prometheus.CounterOpts{
			Name: "auction_confirmed_total",
			Help: "Results committed to history",
		}),
		AuctionsCancelled: f.NewCounter(prometheus.CounterOpts{
			Name: "auction_cancelled_total",
			Help: "Pending results discarded by the administrator",
		}),
		HistoryDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "auction_history_deleted_total",
			Help: "Committed results reversed",
		}),
		HighestBid: f.NewGauge(prometheus.GaugeOpts{
			Name: "auction_highest_bid",
			Help: "Current highest bid on the lot (0 when idle)",
		}),
		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Name: "auction_ws_clients",
			Help: "Connected websocket clients",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry (used by tests).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
