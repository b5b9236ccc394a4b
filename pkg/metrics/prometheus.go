// Package metrics provides Prometheus metrics for the placar statistics service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the placar service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Intake
	submissionsAccepted  *prometheus.CounterVec
	submissionsDuplicate prometheus.Counter
	submissionsRejected  *prometheus.CounterVec
	dedupeSize           prometheus.Gauge

	// Aggregation
	aggregationLatency *prometheus.HistogramVec
	aggregationInputs  *prometheus.GaugeVec
	leaderboardEntries *prometheus.GaugeVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	storeWrites             *prometheus.CounterVec

	// Store
	storeQueryLatency *prometheus.HistogramVec
	storeErrors       *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "placar",
		subsystem:        "stats",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.submissionsAccepted = auto.NewCounterVec(m.counterOpts("submissions_accepted_total",
		"Submissions accepted into the intake queue by kind"), []string{"kind"})
	m.submissionsDuplicate = auto.NewCounter(m.counterOpts("submissions_duplicate_total",
		"Event submissions dropped as duplicates"))
	m.submissionsRejected = auto.NewCounterVec(m.counterOpts("submissions_rejected_total",
		"Submissions rejected by reason"), []string{"reason"})
	m.dedupeSize = auto.NewGauge(m.gaugeOpts("dedupe_size",
		"Event ids currently held by the deduper"))

	m.aggregationLatency = auto.NewHistogramVec(m.histogramOpts("aggregation_latency_milliseconds",
		"Leaderboard computation latency in milliseconds"), []string{"board"})
	m.aggregationInputs = auto.NewGaugeVec(m.gaugeOpts("aggregation_inputs",
		"Rows fed into the last aggregation by input"), []string{"input"})
	m.leaderboardEntries = auto.NewGaugeVec(m.gaugeOpts("leaderboard_entries",
		"Entries returned by the last aggregation by board"), []string{"board"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the intake queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Capacity of the intake queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization", "Intake queue fill ratio (0-1)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueued_total", "Submissions enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeued_total", "Submissions dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total",
		"Enqueue attempts that failed (full, closed, cancelled)"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogramOpts("queue_enqueue_latency_milliseconds",
		"Enqueue latency in milliseconds"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Intake workers running"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds",
		"Time to persist one submission in milliseconds"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Submissions workers failed to persist"))
	m.storeWrites = auto.NewCounterVec(m.counterOpts("store_writes_total",
		"Store writes by kind and outcome"), []string{"kind", "outcome"})

	m.storeQueryLatency = auto.NewHistogramVec(m.histogramOpts("store_query_latency_milliseconds",
		"Store operation latency in milliseconds"), []string{"op"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total",
		"Store operation failures"), []string{"op"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total",
		"Errors by type and severity"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total",
		"Errors by endpoint, method and type"), []string{"endpoint", "method", "error_type"})
	m.errorLatency = auto.NewHistogramVec(m.histogramOpts("error_latency_milliseconds",
		"Latency of operations that ended in an error"), []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Goroutines running"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds",
		"Average GC pause in milliseconds"))
}

// Intake.

// RecordSubmissionAccepted counts a submission of the given kind ("match" or "event").
func RecordSubmissionAccepted(kind string) {
	globalManager.submissionsAccepted.WithLabelValues(kind).Inc()
}

// RecordSubmissionDuplicate counts an event dropped by the deduper.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDuplicate.Inc()
}

// RecordSubmissionRejected counts a rejected submission.
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsRejected.WithLabelValues(reason).Inc()
}

// UpdateDedupeSize sets the number of ids held by the deduper.
func UpdateDedupeSize(size int64) {
	globalManager.dedupeSize.Set(float64(size))
}

// Aggregation.

// RecordAggregation records how long one board took and how many entries it produced.
func RecordAggregation(board string, latencyMs float64, entries int) {
	globalManager.aggregationLatency.WithLabelValues(board).Observe(latencyMs)
	globalManager.leaderboardEntries.WithLabelValues(board).Set(float64(entries))
}

// UpdateAggregationInputs records the number of matches and events fed into the engine.
func UpdateAggregationInputs(matches, events int) {
	globalManager.aggregationInputs.WithLabelValues("matches").Set(float64(matches))
	globalManager.aggregationInputs.WithLabelValues("events").Set(float64(events))
}

// Queue.

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Workers.

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records the time spent persisting one submission.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordStoreWrite counts a store write by kind and outcome (stored, duplicate, failed).
func RecordStoreWrite(kind, outcome string) {
	globalManager.storeWrites.WithLabelValues(kind, outcome).Inc()
}

// Store.

// RecordStoreQueryLatency records the latency of a store operation.
func RecordStoreQueryLatency(op string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(op string) {
	globalManager.storeErrors.WithLabelValues(op).Inc()
}

// HTTP.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
