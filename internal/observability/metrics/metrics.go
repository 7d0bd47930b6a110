package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobboard_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_webhook_events_total",
		Help: "Count of webhook events by type and outcome",
	}, []string{"type", "result"})

	syncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jobboard_sync_duration_seconds",
		Help:    "Duration of event reconciliation attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"type", "result"})

	invalidationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_cache_invalidations_total",
		Help: "Count of cache tag invalidations by entity kind and result",
	}, []string{"kind", "result"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_cache_lookups_total",
		Help: "Count of read-path cache lookups by outcome",
	}, []string{"outcome"})

	eventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jobboard_event_queue_depth",
		Help: "Number of events waiting in the queue",
	})

	deadLetterTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobboard_event_dead_letter_total",
		Help: "Count of events moved to the dead-letter list",
	})

	breakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobboard_circuit_breaker_transitions_total",
		Help: "Count of circuit breaker state transitions",
	}, []string{"breaker", "to"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveWebhookEvent counts a webhook event with an outcome label
func ObserveWebhookEvent(eventType, result string) {
	webhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// ObserveSync records the duration of one reconciliation attempt
func ObserveSync(eventType, result string, duration time.Duration) {
	syncDuration.WithLabelValues(eventType, result).Observe(duration.Seconds())
}

// ObserveInvalidation counts a tag invalidation for an entity kind
func ObserveInvalidation(kind, result string) {
	invalidationsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveCacheHit counts a read-path cache hit
func ObserveCacheHit() {
	cacheLookups.WithLabelValues("hit").Inc()
}

// ObserveCacheMiss counts a read-path cache miss
func ObserveCacheMiss() {
	cacheLookups.WithLabelValues("miss").Inc()
}

// SetQueueDepth sets the event queue depth gauge
func SetQueueDepth(depth int64) {
	if depth < 0 {
		depth = 0
	}
	eventQueueDepth.Set(float64(depth))
}

// ObserveDeadLetter counts an event moved to the dead-letter list
func ObserveDeadLetter() {
	deadLetterTotal.Inc()
}

// ObserveBreakerTransition counts a circuit breaker state change
func ObserveBreakerTransition(breaker, to string) {
	breakerTransitions.WithLabelValues(breaker, to).Inc()
}
