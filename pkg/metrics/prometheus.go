// Package metrics provides Prometheus metrics for the matchtag service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Tagging
	tagsStarted      prometheus.Counter
	tagsSaved        prometheus.Counter
	tagsRejected     prometheus.Counter
	tagsCancelled    prometheus.Counter
	validationIssues *prometheus.CounterVec
	autoGenerated    *prometheus.CounterVec
	eventsDeleted    prometheus.Counter
	activeSessions   prometheus.Gauge
	markerHandoffs   *prometheus.CounterVec
	idempotentReplay prometheus.Counter

	// Persistence
	persistenceLatency prometheus.Histogram
	persistenceErrors  prometheus.Counter
	persistenceStale   prometheus.Counter

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP and live push
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	liveClients         prometheus.Gauge
	liveBroadcasts      prometheus.Counter

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with configuration options.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "matchtag",
		subsystem:        "tagging",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	latencyMs := []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}

	m.tagsStarted = m.counter("tags_started_total", "Active tags opened")
	m.tagsSaved = m.counter("tags_saved_total", "Active tags committed to history")
	m.tagsRejected = m.counter("tags_rejected_total", "Save attempts blocked by validation errors")
	m.tagsCancelled = m.counter("tags_cancelled_total", "Active tags discarded")
	m.validationIssues = m.counterVec("validation_issues_total", "Validation issues by code and severity", "code", "severity")
	m.autoGenerated = m.counterVec("auto_generated_events_total", "Implied events appended by action", "action")
	m.eventsDeleted = m.counter("events_deleted_total", "Events removed from match histories")
	m.activeSessions = m.gauge("active_sessions", "Match sessions held in memory")
	m.markerHandoffs = m.counterVec("marker_handoffs_total", "Match-time marker hand-offs by result", "result")
	m.idempotentReplay = m.counter("idempotent_replays_total", "Requests answered from the idempotency cache")

	m.persistenceLatency = m.histogram("persistence_latency_milliseconds", "Event store save latency", latencyMs)
	m.persistenceErrors = m.counter("persistence_errors_total", "Failed event store saves")
	m.persistenceStale = m.counter("persistence_stale_total", "Saves dropped because a newer revision was stored")

	m.queueSize = m.gauge("queue_size", "Current number of queued save jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Save jobs enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Save jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Save jobs refused by the queue")

	m.workerActiveCount = m.gauge("worker_active_count", "Persistence workers running")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to process one save job", latencyMs)
	m.workerErrors = m.counter("worker_errors_total", "Save jobs that failed in a worker")

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request duration in seconds",
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.liveClients = m.gauge("live_clients", "Connected live-view websocket clients")
	m.liveBroadcasts = m.counter("live_broadcasts_total", "State views pushed to live clients")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")
}

// Tagging.

// RecordTagStarted counts an opened Active Tag.
func RecordTagStarted() { globalManager.tagsStarted.Inc() }

// RecordTagSaved counts a committed Active Tag.
func RecordTagSaved() { globalManager.tagsSaved.Inc() }

// RecordTagRejected counts a save blocked by validation.
func RecordTagRejected() { globalManager.tagsRejected.Inc() }

// RecordTagCancelled counts a discarded Active Tag.
func RecordTagCancelled() { globalManager.tagsCancelled.Inc() }

// RecordValidationIssue counts one issue.
func RecordValidationIssue(code, severity string) {
	globalManager.validationIssues.WithLabelValues(code, severity).Inc()
}

// RecordAutoGenerated counts one implied event.
func RecordAutoGenerated(action string) {
	globalManager.autoGenerated.WithLabelValues(action).Inc()
}

// RecordEventsDeleted adds n deleted events.
func RecordEventsDeleted(n int) { globalManager.eventsDeleted.Add(float64(n)) }

// UpdateActiveSessions sets the number of sessions in memory.
func UpdateActiveSessions(n int) { globalManager.activeSessions.Set(float64(n)) }

// RecordMarkerHandoff counts a hand-off attempt; result is "published" or "failed".
func RecordMarkerHandoff(result string) {
	globalManager.markerHandoffs.WithLabelValues(result).Inc()
}

// RecordIdempotentReplay counts a response served from the idempotency cache.
func RecordIdempotentReplay() { globalManager.idempotentReplay.Inc() }

// Persistence.

// RecordPersistenceLatency records an event store save in milliseconds.
func RecordPersistenceLatency(latencyMs float64) {
	globalManager.persistenceLatency.Observe(latencyMs)
}

// RecordPersistenceError counts a failed save.
func RecordPersistenceError() { globalManager.persistenceErrors.Inc() }

// RecordPersistenceStale counts a save superseded by a newer revision.
func RecordPersistenceStale() { globalManager.persistenceStale.Inc() }

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// Workers.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records job processing latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP and live push.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateLiveClients sets the number of connected live clients.
func UpdateLiveClients(n int) { globalManager.liveClients.Set(float64(n)) }

// RecordLiveBroadcast counts one state view pushed to a match's clients.
func RecordLiveBroadcast() { globalManager.liveBroadcasts.Inc() }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
