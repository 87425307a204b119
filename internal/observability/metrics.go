package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the pipeline's Prometheus metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	Requests        *prometheus.CounterVec
	StageDuration   *prometheus.HistogramVec
	NodesOutOfRange prometheus.Counter
	GeneratedNodes  prometheus.Histogram
}

func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Generation requests by outcome (ok or error kind).",
		},
		[]string{"outcome"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
	outOfRange := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_count_out_of_range_total",
			Help:      "Generated maps whose node count fell outside the sizing target.",
		},
	)
	generated := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generated_nodes",
			Help:      "Node count of successfully generated maps.",
			Buckets:   []float64{1, 3, 5, 8, 12, 18, 25, 35, 50},
		},
	)

	registry.MustRegister(requests, stageDuration, outOfRange, generated)

	return &Collector{
		registry:        registry,
		Requests:        requests,
		StageDuration:   stageDuration,
		NodesOutOfRange: outOfRange,
		GeneratedNodes:  generated,
	}
}

// The methods below accept a nil receiver so callers can run without metrics.

func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (c *Collector) RecordOutcome(outcome string) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(outcome).Inc()
}

func (c *Collector) RecordNodes(n int) {
	if c == nil {
		return
	}
	c.GeneratedNodes.Observe(float64(n))
}

func (c *Collector) RecordOutOfRange() {
	if c == nil {
		return
	}
	c.NodesOutOfRange.Inc()
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
