// Package metrics exposes the engine's operational counters and gauges
// over Prometheus, following the registry pattern used elsewhere in the
// example pack.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every Prometheus metric the engine exports.
type Registry struct {
	QueueDepth          prometheus.Gauge
	MessagesIngested    prometheus.Counter
	MessagesDropped     *prometheus.CounterVec
	DuplicatesSuppressed prometheus.Counter
	ClustersActive      prometheus.Gauge
	ClustersRetired     prometheus.Counter
	PersistenceDrops    prometheus.Counter
	PushSubscribers     prometheus.Gauge
	PushDrops           prometheus.Counter
	SourcesFlagged      prometheus.Gauge
	BatchDuration       prometheus.Histogram
}

// NewRegistry builds and registers every metric.
func NewRegistry() *Registry {
	r := &Registry{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_engine_queue_depth",
			Help: "Number of raw messages waiting to be batched.",
		}),
		MessagesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_engine_messages_ingested_total",
			Help: "Total raw messages accepted from all sources.",
		}),
		MessagesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signal_engine_messages_dropped_total",
			Help: "Messages dropped, by reason.",
		}, []string{"reason"}),
		DuplicatesSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_engine_duplicates_suppressed_total",
			Help: "Messages suppressed by the Deduplicator.",
		}),
		ClustersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_engine_clusters_active",
			Help: "Number of clusters currently tracked.",
		}),
		ClustersRetired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_engine_clusters_retired_total",
			Help: "Total clusters retired by the maintenance job.",
		}),
		PersistenceDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_engine_persistence_drops_total",
			Help: "Retired clusters dropped because the persistence buffer was full.",
		}),
		PushSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_engine_push_subscribers",
			Help: "Number of connected websocket feed subscribers.",
		}),
		PushDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "signal_engine_push_drops_total",
			Help: "Websocket subscribers disconnected for falling behind.",
		}),
		SourcesFlagged: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "signal_engine_sources_flagged",
			Help: "Number of sources currently flagged by the reputation tracker.",
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signal_engine_batch_duration_seconds",
			Help:    "Duration of one drain-extract-dedup-cluster batch cycle.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
	}

	prometheus.MustRegister(
		r.QueueDepth, r.MessagesIngested, r.MessagesDropped, r.DuplicatesSuppressed,
		r.ClustersActive, r.ClustersRetired, r.PersistenceDrops,
		r.PushSubscribers, r.PushDrops, r.SourcesFlagged, r.BatchDuration,
	)

	return r
}

// Handler returns the HTTP handler to mount at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
