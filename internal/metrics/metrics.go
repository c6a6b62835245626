// Package metrics holds the Prometheus collectors for indexing, call graph
// and history activity, and the HTTP handler that serves them.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// indexPasses counts indexer passes by outcome
	indexPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symtrail_index_passes_total",
		Help: "Total indexer passes by result",
	}, []string{"result"})

	// indexPassDuration tracks pass latency
	indexPassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "symtrail_index_pass_seconds",
		Help:    "Indexer pass duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~1.6s
	})

	graphRebuilds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symtrail_graph_rebuilds_total",
		Help: "Total call graph rebuilds",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "symtrail_graph_edges",
		Help: "Call edges currently in the graph",
	})

	// historyEvents counts recorded events by kind
	historyEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symtrail_history_events_total",
		Help: "Total history events by kind",
	}, []string{"kind"})
)

// RecordIndexPass records one indexer pass.
func RecordIndexPass(result string, d time.Duration) {
	indexPasses.WithLabelValues(result).Inc()
	indexPassDuration.Observe(d.Seconds())
}

// RecordGraphRebuild records a rebuild and the resulting total edge count.
func RecordGraphRebuild(totalEdges int) {
	graphRebuilds.Inc()
	graphEdges.Set(float64(totalEdges))
}

// RecordHistoryEvent records one history event.
func RecordHistoryEvent(kind string) {
	historyEvents.WithLabelValues(kind).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
