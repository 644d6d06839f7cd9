package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the Prometheus collectors of one server instance.
type metrics struct {
	registry      *prometheus.Registry
	episodes      prometheus.Counter
	version       prometheus.Gauge
	statusPolls   prometheus.Counter
	injectedPages prometheus.Counter
	cacheHits     prometheus.Counter
	socketClients prometheus.GaugeFunc
}

// newMetrics registers all collectors on a private registry so that several
// servers (e.g. in tests) never collide. socketClients is sampled on scrape.
func newMetrics(socketClients func() int) *metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,

		episodes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "devreload",
			Name:      "change_episodes_total",
			Help:      "Total number of accepted (debounced) change episodes",
		}),

		version: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "devreload",
			Name:      "reload_version",
			Help:      "Current reload signal version",
		}),

		statusPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "devreload",
			Name:      "status_requests_total",
			Help:      "Total number of reload-status requests",
		}),

		injectedPages: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "devreload",
			Name:      "injected_pages_total",
			Help:      "Total number of HTML responses carrying the reload client",
		}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "devreload",
			Name:      "rewrite_cache_hits_total",
			Help:      "Total number of HTML responses served from the rewrite cache",
		}),

		socketClients: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "devreload",
			Name:      "socket_clients",
			Help:      "Number of connected push clients",
		}, func() float64 { return float64(socketClients()) }),
	}
}
