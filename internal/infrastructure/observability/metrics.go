// Package observability holds the Prometheus collector and the
// OpenTelemetry tracer setup.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "kbgraph/pkg/errors"
)

// Collector holds every Prometheus metric the service exports. Each
// collector owns its registry so tests can build as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	AnalyticsDuration *prometheus.HistogramVec
	AnalyticsErrors   *prometheus.CounterVec
	SimilarityPairs   prometheus.Counter
	DroppedRefs       prometheus.Counter

	StoreCalls   *prometheus.CounterVec
	BreakerState *prometheus.GaugeVec

	PoolTasks        *prometheus.CounterVec
	PoolTaskDuration *prometheus.HistogramVec

	CategoryEvents *prometheus.CounterVec
}

// NewCollector creates and registers all metrics under namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
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
		AnalyticsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analytics_operation_duration_seconds",
			Help:      "Duration of analytics operations including the snapshot load",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		AnalyticsErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_operation_errors_total",
			Help:      "Failed analytics operations by error type",
		}, []string{"operation", "type"}),
		SimilarityPairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "similarity_pairs_scored_total",
			Help:      "Document pairs scored by the similarity engine",
		}),
		DroppedRefs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graph_dropped_references_total",
			Help:      "Dangling references omitted while building graphs",
		}),
		StoreCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_calls_total",
			Help:      "Record store calls made while loading snapshots",
		}, []string{"method", "status"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"breaker"}),
		PoolTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_pool_tasks_total",
			Help:      "Worker pool tasks by outcome",
		}, []string{"operation", "status"}),
		PoolTaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_pool_task_duration_seconds",
			Help:      "Worker pool task duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		CategoryEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_events_published_total",
			Help:      "Category domain events by type and outcome",
		}, []string{"event", "status"}),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.AnalyticsDuration,
		c.AnalyticsErrors,
		c.SimilarityPairs,
		c.DroppedRefs,
		c.StoreCalls,
		c.BreakerState,
		c.PoolTasks,
		c.PoolTaskDuration,
		c.CategoryEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordAnalytics(operation string, duration time.Duration, err error) {
	c.AnalyticsDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		c.AnalyticsErrors.WithLabelValues(operation, errorType(err)).Inc()
	}
}

func (c *Collector) AddSimilarityPairs(n int) {
	if n > 0 {
		c.SimilarityPairs.Add(float64(n))
	}
}

func (c *Collector) AddDroppedReferences(n int) {
	if n > 0 {
		c.DroppedRefs.Add(float64(n))
	}
}

func (c *Collector) RecordStoreCall(method string, err error) {
	c.StoreCalls.WithLabelValues(method, status(err)).Inc()
}

// SetBreakerState matches repository.StateListener.
func (c *Collector) SetBreakerState(name, _, to string) {
	var v float64
	switch to {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	c.BreakerState.WithLabelValues(name).Set(v)
}

// RecordPoolTask implements concurrency.Recorder.
func (c *Collector) RecordPoolTask(operation string, duration time.Duration, err error) {
	c.PoolTasks.WithLabelValues(operation, status(err)).Inc()
	c.PoolTaskDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (c *Collector) RecordEvent(event string, err error) {
	c.CategoryEvents.WithLabelValues(event, status(err)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func errorType(err error) string {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return string(appErr.Type)
	}
	return "UNKNOWN"
}
