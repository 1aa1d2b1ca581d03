// Package metrics exposes pipeline counters on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listingops/curator/internal/models"
)

const (
	ReasonDuplicate  = "duplicate"
	ReasonSpecFilter = "spec_filter"
)

type Collector struct {
	registry      *prometheus.Registry
	stageRuns     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	removed       *prometheus.CounterVec
	finalCount    prometheus.Histogram
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		stageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_stage_runs_total",
			Help: "Stage executions by outcome.",
		}, []string{"stage", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "curator_stage_duration_seconds",
			Help:    "Stage execution time.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"stage"}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "curator_images_removed_total",
			Help: "Images dropped from carousels, by reason.",
		}, []string{"reason"}),
		finalCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "curator_final_image_count",
			Help:    "Length of the final image list.",
			Buckets: prometheus.LinearBuckets(0, 2, 10),
		}),
	}
	c.registry.MustRegister(c.stageRuns, c.stageDuration, c.removed, c.finalCount)
	return c
}

// ObserveStage records one stage execution.
func (c *Collector) ObserveStage(stage string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.stageRuns.WithLabelValues(stage, status).Inc()
	c.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// ObserveResult records removals and the final list length of a finished run.
func (c *Collector) ObserveResult(result *models.Result) {
	if c == nil || result == nil {
		return
	}
	if n := len(result.DeduplicationInfo.RemovedURLs); n > 0 {
		c.removed.WithLabelValues(ReasonDuplicate).Add(float64(n))
	}
	if result.SpecFilter != nil && len(result.SpecFilter.Removed) > 0 {
		c.removed.WithLabelValues(ReasonSpecFilter).Add(float64(len(result.SpecFilter.Removed)))
	}
	c.finalCount.Observe(float64(len(result.ImageList)))
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
