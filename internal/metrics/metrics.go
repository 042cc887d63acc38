package metrics

import (
	"math"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/tattva/tattva/internal/pkg/errors"
)

// Metrics holds all application metrics.
type Metrics struct {
	// Finder metrics
	FinderRequests     *CounterVec // labels: source (cache, computed, error)
	CacheOperations    *CounterVec // labels: op, result
	ThresholdAttempts  *CounterVec // labels: threshold, outcome
	ComputeLatency     *Histogram
	ComputeErrors      *CounterVec // labels: error_type
	FindingsComputed   *Counter
	EmptyFindings      *Counter
	LastFindingAbsCorr *Gauge

	// Context snapshot metrics
	ContextBuilds  *CounterVec // labels: outcome (ok, degraded)
	ContextLatency *Histogram

	// Bus metrics
	BusEventsPublished *CounterVec   // labels: topic
	BusEventLatency    *HistogramVec // labels: topic
	BusErrors          *CounterVec   // labels: topic, stage
	BusEventsReceived  *CounterVec   // labels: topic

	// HTTP metrics
	HTTPRequests         *CounterVec   // labels: method, path, status
	HTTPDuration         *HistogramVec // labels: method, path
	HTTPRequestsInFlight *Gauge

	// System metrics
	GoroutineCount *Gauge
	MemoryUsage    *Gauge // in bytes
	Uptime         *Gauge // in seconds

	startTime time.Time
	stop      chan struct{}
	closeOnce sync.Once
}

// New creates a new metrics instance with all metrics initialized.
func New() *Metrics {
	m := &Metrics{
		FinderRequests: NewCounterVec(
			"tattva_finder_requests_total",
			"Correlation finder requests by result source",
			[]string{"source"},
		),
		CacheOperations: NewCounterVec(
			"tattva_cache_operations_total",
			"Result cache operations by outcome",
			[]string{"op", "result"},
		),
		ThresholdAttempts: NewCounterVec(
			"tattva_threshold_attempts_total",
			"Correlation computations per minimum group size threshold",
			[]string{"threshold", "outcome"},
		),
		ComputeLatency: NewHistogram(
			"tattva_compute_latency_ms",
			"Correlation computation latency in milliseconds",
			[]float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		),
		ComputeErrors: NewCounterVec(
			"tattva_compute_errors_total",
			"Failed correlation computations",
			[]string{"error_type"},
		),
		FindingsComputed: NewCounter(
			"tattva_findings_computed_total",
			"Findings produced by a fresh threshold search",
			nil,
		),
		EmptyFindings: NewCounter(
			"tattva_empty_findings_total",
			"Threshold searches that exhausted every threshold",
			nil,
		),
		LastFindingAbsCorr: NewGauge(
			"tattva_last_finding_abs_correlation",
			"Absolute correlation of the most recently computed finding",
			nil,
		),
		ContextBuilds: NewCounterVec(
			"tattva_context_builds_total",
			"Context snapshots assembled",
			[]string{"outcome"},
		),
		ContextLatency: NewHistogram(
			"tattva_context_latency_ms",
			"Context snapshot assembly latency in milliseconds",
			nil,
		),
		BusEventsPublished: NewCounterVec(
			"tattva_bus_events_published_total",
			"Total events published to the bus",
			[]string{"topic"},
		),
		BusEventLatency: NewHistogramVec(
			"tattva_bus_publish_latency_seconds",
			"Bus publish latency in seconds",
			[]string{"topic"},
			[]float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		),
		BusErrors: NewCounterVec(
			"tattva_bus_errors_total",
			"Failed bus publishes and handler invocations",
			[]string{"topic", "stage"},
		),
		BusEventsReceived: NewCounterVec(
			"tattva_bus_events_received_total",
			"Events delivered to bus handlers",
			[]string{"topic"},
		),
		HTTPRequests: NewCounterVec(
			"tattva_http_requests_total",
			"Total HTTP requests",
			[]string{"method", "path", "status"},
		),
		HTTPDuration: NewHistogramVec(
			"tattva_http_request_duration_seconds",
			"HTTP request duration in seconds",
			[]string{"method", "path"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		),
		HTTPRequestsInFlight: NewGauge(
			"tattva_http_requests_in_flight",
			"HTTP requests currently being served",
			nil,
		),
		GoroutineCount: NewGauge(
			"tattva_goroutines",
			"Number of goroutines",
			nil,
		),
		MemoryUsage: NewGauge(
			"tattva_memory_alloc_bytes",
			"Allocated heap memory in bytes",
			nil,
		),
		Uptime: NewGauge(
			"tattva_uptime_seconds",
			"Seconds since the process started",
			nil,
		),
		startTime: time.Now(),
		stop:      make(chan struct{}),
	}

	m.collectOnce()

	// Start background collector for system metrics
	go m.collectSystemMetrics(15 * time.Second)

	return m
}

// collectSystemMetrics periodically collects system metrics until Close.
func (m *Metrics) collectSystemMetrics(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.collectOnce()
		}
	}
}

func (m *Metrics) collectOnce() {
	m.GoroutineCount.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	m.MemoryUsage.Set(float64(memStats.Alloc))

	m.Uptime.Set(time.Since(m.startTime).Seconds())
}

// RecordFinderRequest records where a finder answer came from.
func (m *Metrics) RecordFinderRequest(source string) {
	m.FinderRequests.WithLabels(source).Inc()
}

// RecordCacheOp records a cache read or write outcome.
// op is "get" or "set"; result is "hit", "miss", "ok", "error" or "decode_error".
func (m *Metrics) RecordCacheOp(op, result string) {
	m.CacheOperations.WithLabels(op, result).Inc()
}

// RecordThresholdAttempt records one computation at a minimum group size.
func (m *Metrics) RecordThresholdAttempt(threshold int, accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.ThresholdAttempts.WithLabels(strconv.Itoa(threshold), outcome).Inc()
}

// RecordCompute records a single correlation computation.
func (m *Metrics) RecordCompute(latency time.Duration, err error) {
	m.ComputeLatency.Observe(float64(latency.Microseconds()) / 1000.0)
	if err != nil {
		m.ComputeErrors.WithLabels(errorType(err)).Inc()
	}
}

// RecordFinding records the outcome of a fresh threshold search.
func (m *Metrics) RecordFinding(correlation float64, empty bool) {
	m.FindingsComputed.Inc()
	if empty {
		m.EmptyFindings.Inc()
		m.LastFindingAbsCorr.Set(0)
		return
	}
	m.LastFindingAbsCorr.Set(math.Abs(correlation))
}

// RecordContextBuild records a context snapshot assembly.
func (m *Metrics) RecordContextBuild(latency time.Duration, degraded bool) {
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	m.ContextBuilds.WithLabels(outcome).Inc()
	m.ContextLatency.Observe(float64(latency.Microseconds()) / 1000.0)
}

// RecordBusPublish records event bus publish metrics.
func (m *Metrics) RecordBusPublish(topic string, latency time.Duration, err error) {
	m.BusEventsPublished.WithLabels(topic).Inc()
	m.BusEventLatency.WithLabels(topic).Observe(latency.Seconds())

	if err != nil {
		m.BusErrors.WithLabels(topic, "publish").Inc()
	}
}

// RecordBusHandle records one handler invocation for topic.
func (m *Metrics) RecordBusHandle(topic string, err error) {
	m.BusEventsReceived.WithLabels(topic).Inc()
	if err != nil {
		m.BusErrors.WithLabels(topic, "handle").Inc()
	}
}

// RecordHTTP records one request against a raw URL path.
func (m *Metrics) RecordHTTP(method, path string, status int, durationSeconds float64) {
	m.recordHTTP(method, normalizePath(path), status, durationSeconds)
}

func (m *Metrics) recordHTTP(method, route string, status int, durationSeconds float64) {
	m.HTTPRequests.WithLabels(method, route, statusCode(status)).Inc()
	m.HTTPDuration.WithLabels(method, route).Observe(durationSeconds)
}

// errorType labels an error by its application error code.
func errorType(err error) string {
	if err == nil {
		return "unknown"
	}
	if code := errors.CodeOf(err); code != "" {
		return code
	}
	return "generic"
}

// Close stops the background system collector. It is safe to call twice.
func (m *Metrics) Close() error {
	m.closeOnce.Do(func() { close(m.stop) })
	return nil
}
