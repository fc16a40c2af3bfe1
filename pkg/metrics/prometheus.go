// Package metrics provides Prometheus metrics for the scholarsync pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the scholarsync service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingestion metrics
	pagesFetched        prometheus.Counter
	pagesRejected       *prometheus.CounterVec
	recordsUpserted     *prometheus.CounterVec
	upsertErrors        prometheus.Counter
	upsertLatency       prometheus.Histogram
	normalizerFallbacks prometheus.Counter
	totalScholarships   prometheus.Gauge

	// Crawl metrics
	crawlRuns       *prometheus.CounterVec
	crawlDuplicates prometheus.Counter

	// Text generation metrics
	textgenRequests *prometheus.CounterVec
	textgenLatency  prometheus.Histogram

	// Matching metrics
	matchRuns               *prometheus.CounterVec
	scoringLatency          prometheus.Histogram
	scoringErrors           prometheus.Counter
	scorerBreakerTrips      prometheus.Counter
	suggestionsGenerated    prometheus.Counter
	suggestionReplaceErrors prometheus.Counter

	// Queue metrics
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker metrics
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error and system metrics
	errorRateByComponent *prometheus.CounterVec
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
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
		namespace:        "scholarsync",
		subsystem:        "pipeline",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.pagesFetched = auto.NewCounter(m.counter("pages_fetched_total",
		"Total number of pages handed to the ingestion pipeline"))
	m.pagesRejected = auto.NewCounterVec(m.counter("pages_rejected_total",
		"Pages that produced no record, by reason"), []string{"reason"})
	m.recordsUpserted = auto.NewCounterVec(m.counter("records_upserted_total",
		"Scholarship records persisted, by operation"), []string{"op"})
	m.upsertErrors = auto.NewCounter(m.counter("upsert_errors_total",
		"Upserts rolled back because of a storage error"))
	m.upsertLatency = auto.NewHistogram(m.histogram("upsert_latency_milliseconds",
		"Latency of a single transactional upsert"))
	m.normalizerFallbacks = auto.NewCounter(m.counter("normalizer_fallbacks_total",
		"Normalization attempts that fell back to the raw record"))
	m.totalScholarships = auto.NewGauge(m.gauge("scholarships_total",
		"Number of scholarship records in the pool"))

	m.crawlRuns = auto.NewCounterVec(m.counter("crawl_runs_total",
		"Crawl sessions by final status"), []string{"status"})
	m.crawlDuplicates = auto.NewCounter(m.counter("crawl_seen_skips_total",
		"Detail pages skipped because they were seen recently"))

	m.textgenRequests = auto.NewCounterVec(m.counter("textgen_requests_total",
		"Text generation calls by outcome"), []string{"outcome"})
	m.textgenLatency = auto.NewHistogram(m.histogram("textgen_latency_milliseconds",
		"Latency of text generation calls"))

	m.matchRuns = auto.NewCounterVec(m.counter("match_runs_total",
		"Suggestion requests by mode (cached or recomputed)"), []string{"mode"})
	m.scoringLatency = auto.NewHistogram(m.histogram("scoring_latency_milliseconds",
		"Latency of a single profile/scholarship scoring call"))
	m.scoringErrors = auto.NewCounter(m.counter("scoring_errors_total",
		"Scoring calls that failed and were scored as zero"))
	m.scorerBreakerTrips = auto.NewCounter(m.counter("scorer_breaker_trips_total",
		"Times the live scorer was replaced by the heuristic scorer"))
	m.suggestionsGenerated = auto.NewCounter(m.counter("suggestions_generated_total",
		"Suggestions written by successful replace operations"))
	m.suggestionReplaceErrors = auto.NewCounter(m.counter("suggestion_replace_errors_total",
		"Suggestion set replacements that were rolled back"))

	m.queueSize = auto.NewGauge(m.gauge("queue_size",
		"Current number of pages waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity",
		"Maximum capacity of the page queue"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio",
		"Queue utilization ratio (0.0 to 1.0)"))
	m.queueEnqueueRate = auto.NewCounter(m.counter("queue_enqueue_total",
		"Total number of pages enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counter("queue_dequeue_total",
		"Total number of pages dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total",
		"Pages dropped because the queue was full or closed"))

	m.workerCount = auto.NewGauge(m.gauge("worker_count",
		"Number of ingestion workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogram("worker_processing_latency_milliseconds",
		"Time spent processing one page"))
	m.workerErrorRate = auto.NewCounter(m.counter("worker_errors_total",
		"Pages whose processing ended in an error"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counter("errors_by_component_total",
		"Errors by component and type"), []string{"component", "error_type"})
	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes",
		"System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count",
		"Number of goroutines"))
}

// Ingestion metrics functions.

// RecordPageFetched increments the fetched pages counter.
func RecordPageFetched() {
	globalManager.pagesFetched.Inc()
}

// RecordPageRejected counts a page that produced no record.
func RecordPageRejected(reason string) {
	globalManager.pagesRejected.WithLabelValues(reason).Inc()
}

// RecordUpsert counts a persisted record; op is "insert" or "update".
func RecordUpsert(op string, latencyMs float64) {
	globalManager.recordsUpserted.WithLabelValues(op).Inc()
	globalManager.upsertLatency.Observe(latencyMs)
}

// RecordUpsertError increments the rolled back upserts counter.
func RecordUpsertError() {
	globalManager.upsertErrors.Inc()
}

// RecordNormalizerFallback increments the normalizer fallback counter.
func RecordNormalizerFallback() {
	globalManager.normalizerFallbacks.Inc()
}

// UpdateTotalScholarships sets the record pool size.
func UpdateTotalScholarships(count int) {
	globalManager.totalScholarships.Set(float64(count))
}

// Crawl metrics functions.

// RecordCrawlRun counts a finished crawl session.
func RecordCrawlRun(status string) {
	globalManager.crawlRuns.WithLabelValues(status).Inc()
}

// RecordCrawlSeenSkip increments the recently-seen skip counter.
func RecordCrawlSeenSkip() {
	globalManager.crawlDuplicates.Inc()
}

// RecordTextgenRequest counts a text generation call and its latency.
func RecordTextgenRequest(outcome string, latencyMs float64) {
	globalManager.textgenRequests.WithLabelValues(outcome).Inc()
	globalManager.textgenLatency.Observe(latencyMs)
}

// Matching metrics functions.

// RecordMatchRun counts a suggestion request; mode is "cached" or "recomputed".
func RecordMatchRun(mode string) {
	globalManager.matchRuns.WithLabelValues(mode).Inc()
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() {
	globalManager.scoringErrors.Inc()
}

// RecordScorerBreakerTrip increments the breaker trip counter.
func RecordScorerBreakerTrip() {
	globalManager.scorerBreakerTrips.Inc()
}

// RecordSuggestionsGenerated adds n freshly written suggestions.
func RecordSuggestionsGenerated(n int) {
	globalManager.suggestionsGenerated.Add(float64(n))
}

// RecordSuggestionReplaceError increments the failed replace counter.
func RecordSuggestionReplaceError() {
	globalManager.suggestionReplaceErrors.Inc()
}

// Queue metrics functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker metrics functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// HTTP metrics functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// Configure rebuilds the global metrics on a fresh registry with opts.
// Call it once at startup, before anything records.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(customRegistry))...)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
