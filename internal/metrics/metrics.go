// Package metrics exposes Prometheus counters for document sync and
// annotation updates.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proofsync"

// Flush results.
const (
	FlushSubmitted = "submitted"
	FlushNoop      = "noop"
	FlushFailed    = "failed"
)

var (
	Flushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "document",
		Name:      "flushes_total",
		Help:      "Edit queue flushes by result (submitted, noop, failed).",
	}, []string{"result"})

	EditsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "document",
		Name:      "edits_submitted_total",
		Help:      "Insert and remove operations delivered to the prover.",
	})

	FlushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "document",
		Name:      "flush_duration_seconds",
		Help:      "Time spent in a flush, including waiting for the submit lock.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	AnnotationUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "annotations",
		Name:      "updates_total",
		Help:      "Annotation recomputations by mode (full, incremental).",
	}, []string{"mode"})

	Decorations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "annotations",
		Name:      "decorations_total",
		Help:      "Decorations added or removed by the differ.",
	}, []string{"op"})

	Markers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "annotations",
		Name:      "markers_total",
		Help:      "Problem markers added or removed by the differ.",
	}, []string{"op"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
