// Package metrics provides Prometheus metrics for the buffcal bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the bot.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Message intake
	messagesReceived  *prometheus.CounterVec
	messagesDuplicate prometheus.Counter
	messagesUnparsed  prometheus.Counter

	// Event assembly and calendar writes
	eventsCreated     prometheus.Counter
	eventsSkipped     prometheus.Counter
	collaboratorError *prometheus.CounterVec

	// Idempotency tracker
	trackerSize    prometheus.Gauge
	trackerEvicted prometheus.Counter
	trackerSaveErr prometheus.Counter

	// Reconciliation
	reconcileDeleted prometheus.Counter
	reconcileGroups  prometheus.Gauge

	// Queue and sweep
	queueSize     prometheus.Gauge
	queueRejected prometheus.Counter
	sweepDuration prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "buffcal",
		subsystem:        "bot",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.messagesReceived = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "messages_received_total",
		Help:        "Messages handed to the pipeline, by trigger (create, update, catchup)",
		ConstLabels: m.constLabels,
	}, []string{"trigger"})
	m.messagesDuplicate = m.counter("messages_duplicate_total", "Messages skipped because they were already processed")
	m.messagesUnparsed = m.counter("messages_unparsed_total", "Messages without a recognized mention or time")

	m.eventsCreated = m.counter("events_created_total", "Calendar entries created")
	m.eventsSkipped = m.counter("events_skipped_total", "Candidate events dropped because their date or time did not parse")
	m.collaboratorError = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "collaborator_errors_total",
		Help:        "Failed calls to the calendar or chat collaborators, by operation",
		ConstLabels: m.constLabels,
	}, []string{"op"})

	m.trackerSize = m.gauge("tracker_entries", "Message ids currently held by the idempotency tracker")
	m.trackerEvicted = m.counter("tracker_evicted_total", "Message ids evicted after the retention window")
	m.trackerSaveErr = m.counter("tracker_persist_errors_total", "Failed writes of the idempotency store")

	m.reconcileDeleted = m.counter("reconcile_deleted_total", "Duplicate calendar entries deleted by reconciliation")
	m.reconcileGroups = m.gauge("reconcile_duplicate_groups", "Duplicate groups found in the last reconciliation pass")

	m.queueSize = m.gauge("queue_size", "Jobs waiting in the work queue")
	m.queueRejected = m.counter("queue_rejected_total", "Jobs rejected because the queue was full or closed")
	m.sweepDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "sweep_duration_milliseconds",
		Help:        "Duration of the periodic catch-up and reconciliation sweep",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of ops HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "Ops HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordMessageReceived counts a message entering the pipeline.
func RecordMessageReceived(trigger string) {
	globalManager.messagesReceived.WithLabelValues(trigger).Inc()
}

// RecordMessageDuplicate counts a message skipped by the tracker.
func RecordMessageDuplicate() {
	globalManager.messagesDuplicate.Inc()
}

// RecordMessageUnparsed counts a message that produced no events.
func RecordMessageUnparsed() {
	globalManager.messagesUnparsed.Inc()
}

// RecordEventCreated counts a calendar insert.
func RecordEventCreated() {
	globalManager.eventsCreated.Inc()
}

// RecordEventsSkipped counts candidate events dropped during assembly.
func RecordEventsSkipped(n int) {
	globalManager.eventsSkipped.Add(float64(n))
}

// RecordCollaboratorError counts a failed collaborator call.
func RecordCollaboratorError(op string) {
	globalManager.collaboratorError.WithLabelValues(op).Inc()
}

// UpdateTrackerSize sets the number of tracked message ids.
func UpdateTrackerSize(n int64) {
	globalManager.trackerSize.Set(float64(n))
}

// RecordTrackerEvicted counts evicted message ids.
func RecordTrackerEvicted(n int) {
	globalManager.trackerEvicted.Add(float64(n))
}

// RecordTrackerPersistError counts a failed store write.
func RecordTrackerPersistError() {
	globalManager.trackerSaveErr.Inc()
}

// RecordReconcile records the result of a reconciliation pass.
func RecordReconcile(groups, deleted int) {
	globalManager.reconcileGroups.Set(float64(groups))
	globalManager.reconcileDeleted.Add(float64(deleted))
}

// UpdateQueueSize sets the number of queued jobs.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueRejected counts a rejected job.
func RecordQueueRejected() {
	globalManager.queueRejected.Inc()
}

// RecordSweepDuration records how long a sweep took.
func RecordSweepDuration(ms float64) {
	globalManager.sweepDuration.Observe(ms)
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
