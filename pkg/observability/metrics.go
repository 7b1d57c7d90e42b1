package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Pipeline metrics
	PipelineOutcomes  *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	PipelinesInFlight prometheus.Gauge
	BatchSize         *prometheus.HistogramVec

	// Enrichment metrics
	LLMCalls           *prometheus.CounterVec
	AnalysisFallbacks  prometheus.Counter
	ConnectionsCreated prometheus.Counter
	ItemsDeleted       prometheus.Counter

	// Background task metrics
	BackgroundTasks *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry under namespace.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PipelineOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_items_total",
			Help:      "Item pipelines by capture source and outcome",
		}, []string{"source", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		PipelinesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipelines_in_flight",
			Help:      "Item pipelines currently holding a concurrency slot",
		}),
		BatchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of inputs accepted per batch",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
		}, []string{"source"}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "LLM completions by provider, operation and outcome",
		}, []string{"provider", "operation", "outcome"}),
		AnalysisFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_fallbacks_total",
			Help:      "Analyses that degraded to the fallback result",
		}),
		ConnectionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_created_total",
			Help:      "Symmetric connections added between items",
		}),
		ItemsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_deleted_total",
			Help:      "Total number of items deleted",
		}),
		BackgroundTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_tasks_total",
			Help:      "Background tasks by name and outcome",
		}, []string{"task", "outcome"}),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.PipelineOutcomes,
		c.StageDuration,
		c.PipelinesInFlight,
		c.BatchSize,
		c.LLMCalls,
		c.AnalysisFallbacks,
		c.ConnectionsCreated,
		c.ItemsDeleted,
		c.BackgroundTasks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Registry exposes the underlying registry, mainly for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request.
func (c *Collector) RecordHTTPRequest(method, route string, status int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordPipeline records the outcome of one item pipeline.
func (c *Collector) RecordPipeline(source, outcome string) {
	if c == nil {
		return
	}
	c.PipelineOutcomes.WithLabelValues(source, outcome).Inc()
}

// ObserveStage records the duration of a pipeline stage.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// PipelineStarted and PipelineFinished track concurrency slot usage.
func (c *Collector) PipelineStarted() {
	if c != nil {
		c.PipelinesInFlight.Inc()
	}
}

func (c *Collector) PipelineFinished() {
	if c != nil {
		c.PipelinesInFlight.Dec()
	}
}

// RecordBatch records the accepted size of a batch.
func (c *Collector) RecordBatch(source string, size int) {
	if c == nil {
		return
	}
	c.BatchSize.WithLabelValues(source).Observe(float64(size))
}

// RecordLLMCall records one LLM completion attempt.
func (c *Collector) RecordLLMCall(provider, operation, outcome string) {
	if c == nil {
		return
	}
	c.LLMCalls.WithLabelValues(provider, operation, outcome).Inc()
}

// RecordAnalysisFallback counts a degraded analysis.
func (c *Collector) RecordAnalysisFallback() {
	if c != nil {
		c.AnalysisFallbacks.Inc()
	}
}

// RecordConnections counts symmetric connections created.
func (c *Collector) RecordConnections(n int) {
	if c != nil && n > 0 {
		c.ConnectionsCreated.Add(float64(n))
	}
}

// RecordItemDeleted counts a deletion.
func (c *Collector) RecordItemDeleted() {
	if c != nil {
		c.ItemsDeleted.Inc()
	}
}

// RecordBackgroundTask records the outcome of a scheduled task.
func (c *Collector) RecordBackgroundTask(task, outcome string) {
	if c == nil {
		return
	}
	c.BackgroundTasks.WithLabelValues(task, outcome).Inc()
}
