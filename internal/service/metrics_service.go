package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// cache usage and the records core.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	transferOutcomes  *prometheus.CounterVec
	snapshotsCreated  *prometheus.CounterVec
	verifications     *prometheus.CounterVec
	bestEffortFailure *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	transferOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_transitions_total",
		Help: "Transfer case transitions by target status and outcome",
	}, []string{"transition", "outcome"})

	snapshotsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshots_generated_total",
		Help: "Academic record snapshots generated by kind",
	}, []string{"kind"})

	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapshot_verifications_total",
		Help: "Snapshot integrity checks by result",
	}, []string{"result"})

	bestEffortFailure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "best_effort_failures_total",
		Help: "Side effects that failed without failing their operation",
	}, []string{"operation"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		transferOutcomes, snapshotsCreated, verifications, bestEffortFailure, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		transferOutcomes:  transferOutcomes,
		snapshotsCreated:  snapshotsCreated,
		verifications:     verifications,
		bestEffortFailure: bestEffortFailure,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordTransferTransition counts a transfer transition attempt.
func (m *MetricsService) RecordTransferTransition(transition string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.transferOutcomes.WithLabelValues(transition, outcome).Inc()
}

// RecordSnapshotGenerated counts a created snapshot.
func (m *MetricsService) RecordSnapshotGenerated(kind string) {
	if m == nil {
		return
	}
	m.snapshotsCreated.WithLabelValues(kind).Inc()
}

// RecordVerification counts an integrity check.
func (m *MetricsService) RecordVerification(valid bool) {
	if m == nil {
		return
	}
	result := "valid"
	if !valid {
		result = "mismatch"
	}
	m.verifications.WithLabelValues(result).Inc()
}

// RecordBestEffortFailure counts a swallowed side-effect failure.
func (m *MetricsService) RecordBestEffortFailure(operation string) {
	if m == nil {
		return
	}
	m.bestEffortFailure.WithLabelValues(operation).Inc()
}
