// ============================================================================
// Timeline Metrics - Prometheus collector
// ============================================================================
//
// Package: internal/metrics
// File: metrics.go
// Purpose: Expose recomputation activity of a timeline domain.
//
// Metric families:
//
//   1. Counters:
//      - timeline_recomputations_total: visibility passes run
//      - timeline_layers_rejected_total{priority}: passes halted by a layer
//      - timeline_mutations_total{op}: add / delete / resize / replace calls
//
//   2. Histogram:
//      - timeline_recompute_duration_seconds
//
//   3. Gauges:
//      - timeline_items: items in the collection after the last pass
//      - timeline_visible_items: items shown after the last pass
//      - timeline_accepted_layers: layers accepted in the last pass
//      - timeline_watch_streams: open gRPC watch streams
//
// Example queries:
//
//   # share of items hidden
//   1 - timeline_visible_items / timeline_items
//
//   # which priority keeps halting evaluation
//   topk(3, rate(timeline_layers_rejected_total[5m]))
//
// ============================================================================

package metrics

import (
	"net/http"
	"strconv"

	"github.com/ChuLiYu/priority-timeline/internal/timeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Mutation operation labels
const (
	OpAdd     = "add"
	OpDelete  = "delete"
	OpResize  = "resize"
	OpReplace = "replace"
)

// Collector holds the timeline metrics. It implements timeline.Recorder.
type Collector struct {
	recomputations prometheus.Counter
	layersRejected *prometheus.CounterVec
	mutations      *prometheus.CounterVec

	recomputeDuration prometheus.Histogram

	items          prometheus.Gauge
	visibleItems   prometheus.Gauge
	acceptedLayers prometheus.Gauge
	watchStreams   prometheus.Gauge

	gatherer prometheus.Gatherer
}

var _ timeline.Recorder = (*Collector)(nil)

// NewCollector creates the metrics and registers them on reg. A nil reg
// uses a fresh private registry.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		recomputations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "timeline_recomputations_total",
			Help: "Total number of visibility recomputations",
		}),
		layersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_layers_rejected_total",
			Help: "Recomputations halted by a colliding priority layer",
		}, []string{"priority"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "timeline_mutations_total",
			Help: "Domain mutations by operation",
		}, []string{"op"}),
		recomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "timeline_recompute_duration_seconds",
			Help:    "Time spent in one visibility recomputation",
			Buckets: prometheus.ExponentialBuckets(0.000001, 4, 10),
		}),
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timeline_items",
			Help: "Items in the collection",
		}),
		visibleItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timeline_visible_items",
			Help: "Items in the visible set",
		}),
		acceptedLayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timeline_accepted_layers",
			Help: "Priority layers accepted in the last recomputation",
		}),
		watchStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "timeline_watch_streams",
			Help: "Open WatchVisible streams",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		c.recomputations,
		c.layersRejected,
		c.mutations,
		c.recomputeDuration,
		c.items,
		c.visibleItems,
		c.acceptedLayers,
		c.watchStreams,
	)

	return c
}

// RecordResolution records one visibility pass.
func (c *Collector) RecordResolution(s timeline.ResolutionStats) {
	c.recomputations.Inc()
	c.recomputeDuration.Observe(s.Duration.Seconds())
	c.items.Set(float64(s.Items))
	c.visibleItems.Set(float64(s.Visible))
	c.acceptedLayers.Set(float64(s.Layers))
	if s.Halted {
		c.layersRejected.WithLabelValues(strconv.Itoa(s.Rejected)).Inc()
	}
}

// RecordMutation counts one domain mutation.
func (c *Collector) RecordMutation(op string) {
	c.mutations.WithLabelValues(op).Inc()
}

// StreamOpened and StreamClosed track watch streams.
func (c *Collector) StreamOpened() {
	c.watchStreams.Inc()
}

func (c *Collector) StreamClosed() {
	c.watchStreams.Dec()
}

// Handler serves the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
