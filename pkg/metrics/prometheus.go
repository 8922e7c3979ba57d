// Package metrics provides Prometheus metrics for the Endurank catalog service.
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

	// Catalog
	validations  *prometheus.CounterVec
	submissions  *prometheus.CounterVec
	moderations  *prometheus.CounterVec
	catalogItems *prometheus.GaugeVec
	listingSize  *prometheus.GaugeVec
	scores       prometheus.Counter

	// Search
	searches       *prometheus.CounterVec
	searchLatency  prometheus.Histogram
	searchResults  prometheus.Histogram
	searchFallback prometheus.Counter

	// Price cache
	cacheRequests *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store
	storeLatency *prometheus.HistogramVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerActive            prometheus.Gauge
	workerErrors            prometheus.Counter
	workerProcessingLatency prometheus.Histogram

	// Race sync
	syncRuns     *prometheus.CounterVec
	syncRecords  *prometheus.CounterVec
	syncDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "endurank",
		subsystem:        "catalog",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
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

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.validations = m.counterVec("validations_total",
		"Duplicate checks by catalog kind and outcome (unique, duplicate, similar, error)", "kind", "outcome")
	m.submissions = m.counterVec("submissions_total",
		"Catalog submissions by kind and outcome (created, blocked, warned, invalid)", "kind", "outcome")
	m.moderations = m.counterVec("moderations_total",
		"Moderation decisions by kind and resulting status", "kind", "status")
	m.catalogItems = m.gaugeVec("items",
		"Catalog items by kind and moderation status", "kind", "status")
	m.listingSize = m.gaugeVec("listing_size",
		"Live items in each ranked listing", "kind", "sensitivity")
	m.scores = m.counter("scores_computed_total",
		"Total number of Endurank scores computed")

	m.searches = m.counterVec("search_queries_total",
		"Search queries by detected intent", "intent")
	m.searchLatency = m.histogram("search_latency_milliseconds",
		"Parse plus rank latency in milliseconds", m.histogramBuckets)
	m.searchResults = m.histogram("search_results",
		"Number of results returned per search", []float64{0, 1, 2, 5, 10, 25, 50, 100, 250})
	m.searchFallback = m.counter("search_fallback_total",
		"Searches answered by the plain substring fallback")

	m.cacheRequests = m.counterVec("price_cache_requests_total",
		"Category max-price cache lookups by result (hit, miss, error)", "result")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.storeLatency = m.histogramVec("store_latency_milliseconds",
		"Document store operation latency in milliseconds", "operation")

	m.queueSize = m.gauge("queue_size", "Current number of sync records waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total number of records enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total number of records dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected enqueues")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds",
		"Time a record spends waiting in the queue in milliseconds", m.histogramBuckets)

	m.workerActive = m.gauge("worker_active_count", "Number of running ingestion workers")
	m.workerErrors = m.counter("worker_errors_total", "Total number of records the workers failed to apply")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time to apply one record in milliseconds", m.histogramBuckets)

	m.syncRuns = m.counterVec("sync_runs_total",
		"Race sync runs by source and outcome", "source", "outcome")
	m.syncRecords = m.counterVec("sync_records_total",
		"Race records handled by source and action (created, updated, skipped, failed)", "source", "action")
	m.syncDuration = m.histogramVec("sync_duration_milliseconds",
		"Race source fetch duration in milliseconds", "source")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
}

// RecordValidation counts one duplicate check.
func RecordValidation(kind, outcome string) {
	globalManager.validations.WithLabelValues(kind, outcome).Inc()
}

// RecordSubmission counts one catalog submission.
func RecordSubmission(kind, outcome string) {
	globalManager.submissions.WithLabelValues(kind, outcome).Inc()
}

// RecordModeration counts one moderation decision.
func RecordModeration(kind, status string) {
	globalManager.moderations.WithLabelValues(kind, status).Inc()
}

// UpdateCatalogItems sets the number of items of a kind in a status.
func UpdateCatalogItems(kind, status string, count int) {
	globalManager.catalogItems.WithLabelValues(kind, status).Set(float64(count))
}

// UpdateListingSize sets the size of one ranked listing.
func UpdateListingSize(kind, sensitivity string, count int) {
	globalManager.listingSize.WithLabelValues(kind, sensitivity).Set(float64(count))
}

// RecordScoreComputed increments the scores counter.
func RecordScoreComputed() {
	globalManager.scores.Inc()
}

// RecordSearch records one search with its intent, latency and result count.
func RecordSearch(intent string, latencyMs float64, results int, fallback bool) {
	globalManager.searches.WithLabelValues(intent).Inc()
	globalManager.searchLatency.Observe(latencyMs)
	globalManager.searchResults.Observe(float64(results))
	if fallback {
		globalManager.searchFallback.Inc()
	}
}

// RecordCacheLookup counts a price cache lookup.
func RecordCacheLookup(result string) {
	globalManager.cacheRequests.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordStoreLatency records a document store operation latency.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
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

// RecordQueueProcessingLatency records how long a record waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActive.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerProcessingLatency records the time to apply one record.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordSyncRun counts a finished fetch of one source.
func RecordSyncRun(source, outcome string, latencyMs float64) {
	globalManager.syncRuns.WithLabelValues(source, outcome).Inc()
	globalManager.syncDuration.WithLabelValues(source).Observe(latencyMs)
}

// RecordSyncRecord counts one applied race record.
func RecordSyncRecord(source, action string) {
	globalManager.syncRecords.WithLabelValues(source, action).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
