package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the dev server.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CompileDuration prometheus.Histogram
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	WatcherRounds   prometheus.Counter
	ReloadsTotal    prometheus.Counter
	HMRClients      prometheus.Gauge
}

// MetricsConfig configures instrument registration.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "wu").
	Namespace string

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// NewMetrics registers the dev-server instruments.
func NewMetrics(config MetricsConfig) *Metrics {
	if config.Namespace == "" {
		config.Namespace = "wu"
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "requests_total",
			Help:      "HTTP requests served, by route class and status",
		}, []string{"route", "status"}),

		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "request_duration_seconds",
			Help:      "Request handling duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		CompileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "compile_duration_seconds",
			Help:      "Source compilation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),

		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "cache_hits_total",
			Help:      "Compile cache hits",
		}),

		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "cache_misses_total",
			Help:      "Compile cache misses",
		}),

		WatcherRounds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "watcher_rounds_total",
			Help:      "Completed file-watcher scan rounds",
		}),

		ReloadsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "reloads_total",
			Help:      "Hot-reload events published to browsers",
		}),

		HMRClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "hmr_clients",
			Help:      "Connected HMR streams (WebSocket and SSE)",
		}),
	}
}
