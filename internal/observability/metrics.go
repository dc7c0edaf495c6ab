// Package observability holds the Prometheus metrics for the knowledge
// graph backend and the HTTP middleware that feeds them.
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the application.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Business metrics
	NodesIngested        prometheus.Counter
	NodesSkipped         prometheus.Counter
	ValidationsRecorded  *prometheus.CounterVec
	RelationshipsCreated prometheus.Counter
	PathSearches         prometheus.Counter
	RetrainingsRequested prometheus.Counter
	StablePromotions     prometheus.Counter
}

// NewCollector creates a metrics collector with the given namespace. The
// collector is a process-wide singleton so repeated construction in tests
// does not re-register metrics.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	nodesIngested := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_ingested_total",
			Help:      "Total number of knowledge nodes created through ingestion",
		},
	)

	nodesSkipped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_skipped_total",
			Help:      "Total number of duplicate candidates skipped during ingestion",
		},
	)

	validationsRecorded := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_recorded_total",
			Help:      "Total number of validation decisions recorded",
		},
		[]string{"decision"},
	)

	relationshipsCreated := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relationships_created_total",
			Help:      "Total number of graph relationships created",
		},
	)

	pathSearches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "path_searches_total",
			Help:      "Total number of graph path searches",
		},
	)

	retrainingsRequested := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrainings_requested_total",
			Help:      "Total number of retraining events triggered by ingestion",
		},
	)

	stablePromotions := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stable_promotions_total",
			Help:      "Total number of model versions promoted to stable",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		nodesIngested,
		nodesSkipped,
		validationsRecorded,
		relationshipsCreated,
		pathSearches,
		retrainingsRequested,
		stablePromotions,
	)

	globalCollector = &Collector{
		registry:             registry,
		HTTPRequests:         httpRequests,
		HTTPDuration:         httpDuration,
		NodesIngested:        nodesIngested,
		NodesSkipped:         nodesSkipped,
		ValidationsRecorded:  validationsRecorded,
		RelationshipsCreated: relationshipsCreated,
		PathSearches:         pathSearches,
		RetrainingsRequested: retrainingsRequested,
		StablePromotions:     stablePromotions,
	}

	return globalCollector
}

// ResetForTesting resets the global collector.
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// Handler returns the HTTP handler that exposes the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latencies per chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapper.statusCode)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}
