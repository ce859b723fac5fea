// Package metrics exposes Prometheus metrics for the proxy's relay paths.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all counters and gauges updated by the router and its
// per-client relay tasks.
type Metrics struct {
	// Client-to-server path
	PacketsUp prometheus.Counter
	BytesUp   prometheus.Counter

	// Server-to-client path
	PacketsDown prometheus.Counter
	BytesDown   prometheus.Counter

	// Routing table
	ActiveClients prometheus.Gauge

	// Discovery handling
	PongRewrites prometheus.Counter
	Passthrough  prometheus.Counter

	// Reader tasks that exited on a socket error
	ReaderErrors prometheus.Counter
}

// New creates and registers all metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use their own registry
// so parallel tests don't collide on metric names.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PacketsUp: factory.NewCounter(prometheus.CounterOpts{
			Name: "phantom_packets_up_total",
			Help: "Datagrams forwarded from clients to the remote server",
		}),
		BytesUp: factory.NewCounter(prometheus.CounterOpts{
			Name: "phantom_bytes_up_total",
			Help: "Bytes forwarded from clients to the remote server",
		}),
		PacketsDown: factory.NewCounter(prometheus.CounterOpts{
			Name: "phantom_packets_down_total",
			Help: "Datagrams relayed from the remote server back to clients",
		}),
		BytesDown: factory.NewCounter(prometheus.CounterOpts{
			Name: "phantom_bytes_down_total",
			Help: "Bytes relayed from the remote server back to clients",
		}),
		ActiveClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "phantom_active_clients",
			Help: "Clients with a dedicated upstream socket in the routing table",
		}),
		PongRewrites: factory.NewCounter(prometheus.CounterOpts{
			Name: "phantom_pong_rewrites_total",
			Help: "Discovery pongs whose advertised port was rewritten",
		}),
		Passthrough: factory.NewCounter(prometheus.CounterOpts{
			Name: "phantom_passthrough_total",
			Help: "Upstream datagrams relayed verbatim (non-discovery traffic)",
		}),
		ReaderErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "phantom_reader_errors_total",
			Help: "Reader tasks terminated by a socket error",
		}),
	}
}
