package apix

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle and
// reliability layers. It is safe for concurrent use. All record methods are
// nil-safe so the client can run without metrics.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	retriesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec

	tokenFetchFailures  prometheus.Counter
	rateLimiterWait     prometheus.Histogram
	retryBudgetExceeded *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "apix_requests_total",
				Help: "Total number of HTTP requests made",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "apix_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "apix_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "apix_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "apix_errors_total",
				Help: "Total number of normalized errors by taxonomy code",
			},
			[]string{"code", "method", "endpoint"},
		),
		tokenFetchFailures: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "apix_token_fetch_failures_total",
				Help: "Total number of token provider failures (requests proceeded without auth)",
			},
		),
		rateLimiterWait: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "apix_rate_limiter_wait_seconds",
				Help:    "Time spent waiting on the client-side rate limiter",
				Buckets: prometheus.DefBuckets,
			},
		),
		retryBudgetExceeded: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "apix_retry_budget_exceeded_total",
				Help: "Total number of times the retry budget stopped a retry",
			},
			[]string{"endpoint"},
		),
	}
}

// RecordRequestStart marks a request as in flight.
func (m *MetricsCollector) RecordRequestStart(method, endpoint string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd marks a request as no longer in flight.
func (m *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	if m == nil {
		return
	}
	m.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRequest records the terminal outcome of a logical call. A status code
// of zero means no HTTP response was received.
func (m *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	status := strconv.Itoa(statusCode)
	m.requestsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.requestDuration.WithLabelValues(method, status, endpoint).Observe(duration.Seconds())
}

// RecordRetry records one retry attempt.
func (m *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	if m == nil {
		return
	}
	m.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordError records one normalized failure.
func (m *MetricsCollector) RecordError(code ErrorCode, method, endpoint string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(string(code), method, endpoint).Inc()
}

// RecordTokenFetchFailure records a failed token resolution.
func (m *MetricsCollector) RecordTokenFetchFailure() {
	if m == nil {
		return
	}
	m.tokenFetchFailures.Inc()
}

// RecordRateLimiterWait records time spent blocked on the rate limiter.
func (m *MetricsCollector) RecordRateLimiterWait(d time.Duration) {
	if m == nil {
		return
	}
	m.rateLimiterWait.Observe(d.Seconds())
}

// RecordRetryBudgetExceeded records a retry suppressed by the budget.
func (m *MetricsCollector) RecordRetryBudgetExceeded(endpoint string) {
	if m == nil {
		return
	}
	m.retryBudgetExceeded.WithLabelValues(endpoint).Inc()
}
