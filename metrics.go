package canvas

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	graphUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "canvas_graph_updates_total",
		Help: "Node collection replacements applied to a graph",
	})

	// gesturesTotal counts resolved gestures.
	// Labels: kind = "node_drag" | "pan" | "connection"; outcome = "moved" | "connected" | "menu" | "rejected" | "noop" | "cancelled"
	gesturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canvas_gestures_total",
		Help: "Resolved pointer gestures by kind and outcome",
	}, []string{"kind", "outcome"})

	storeOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canvas_store_ops_duration_seconds",
		Help:    "Store operation duration by backend and operation",
		Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"backend", "op"})
)

// ObserveStoreOp records the duration of a store operation that began at start.
func ObserveStoreOp(backend, op string, start time.Time) {
	storeOpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}
