package securesheets

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle and
// hardening layers. All record methods are nil-safe, so an unset collector
// costs nothing at call sites. Safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   prometheus.Gauge

	rateLimitRejections *prometheus.CounterVec
	rateLimitRemaining  prometheus.Gauge

	integrityFailures *prometheus.CounterVec

	discoveryTotal *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec

	registerer prometheus.Registerer
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied
// registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	mc := &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "securesheets_requests_total",
				Help: "Total number of signed API requests made",
			},
			[]string{"action", "method", "status_code"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "securesheets_request_duration_seconds",
				Help:    "Duration of signed API requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"action", "method", "status_code"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "securesheets_requests_in_flight",
				Help: "Number of signed API requests currently in flight",
			},
			[]string{"action", "method"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "securesheets_cache_hits_total",
				Help: "Total number of response cache hits",
			},
			[]string{"action"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "securesheets_cache_misses_total",
				Help: "Total number of response cache misses",
			},
			[]string{"action"},
		),
		cacheSize: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "securesheets_cache_size",
				Help: "Current number of entries in the response cache",
			},
		),
		rateLimitRejections: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "securesheets_rate_limit_rejections_total",
				Help: "Total number of requests rejected by the client-side rate window",
			},
			[]string{"action"},
		),
		rateLimitRemaining: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "securesheets_rate_limit_remaining",
				Help: "Requests the current rate window still admits",
			},
		),
		integrityFailures: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "securesheets_integrity_failures_total",
				Help: "Total number of responses discarded for checksum mismatch",
			},
			[]string{"action"},
		),
		discoveryTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "securesheets_discovery_total",
				Help: "Total number of server discovery probes by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "securesheets_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"code", "action", "method"},
		),
		registerer: registry,
	}

	return mc
}

// RecordRequest records request count and duration.
func (mc *MetricsCollector) RecordRequest(action, method string, statusCode int, duration time.Duration) {
	if mc == nil {
		return
	}

	statusCodeStr := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(action, method, statusCodeStr).Inc()
	mc.requestDuration.WithLabelValues(action, method, statusCodeStr).Observe(duration.Seconds())
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(action, method string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(action, method).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(action, method string) {
	if mc == nil {
		return
	}

	mc.requestsInFlight.WithLabelValues(action, method).Dec()
}

// RecordCacheHit increments the cache hit counter.
func (mc *MetricsCollector) RecordCacheHit(action string) {
	if mc == nil {
		return
	}

	mc.cacheHits.WithLabelValues(action).Inc()
}

// RecordCacheMiss increments the cache miss counter.
func (mc *MetricsCollector) RecordCacheMiss(action string) {
	if mc == nil {
		return
	}

	mc.cacheMisses.WithLabelValues(action).Inc()
}

// RecordCacheSize sets the cache size gauge.
func (mc *MetricsCollector) RecordCacheSize(size int) {
	if mc == nil {
		return
	}

	mc.cacheSize.Set(float64(size))
}

// RecordRateLimitRejection increments the rejection counter.
func (mc *MetricsCollector) RecordRateLimitRejection(action string) {
	if mc == nil {
		return
	}

	mc.rateLimitRejections.WithLabelValues(action).Inc()
}

// RecordRateLimitRemaining sets the remaining-slots gauge.
func (mc *MetricsCollector) RecordRateLimitRemaining(remaining int) {
	if mc == nil {
		return
	}

	mc.rateLimitRemaining.Set(float64(remaining))
}

// RecordIntegrityFailure increments the checksum failure counter.
func (mc *MetricsCollector) RecordIntegrityFailure(action string) {
	if mc == nil {
		return
	}

	mc.integrityFailures.WithLabelValues(action).Inc()
}

// RecordDiscovery increments the discovery counter for an outcome.
func (mc *MetricsCollector) RecordDiscovery(outcome string) {
	if mc == nil {
		return
	}

	mc.discoveryTotal.WithLabelValues(outcome).Inc()
}

// RecordError increments the error counter by code.
func (mc *MetricsCollector) RecordError(code, action, method string) {
	if mc == nil {
		return
	}

	mc.errorsTotal.WithLabelValues(code, action, method).Inc()
}

// GetRegistry exposes the underlying prometheus registry when the collector
// was built on one, nil otherwise.
func (mc *MetricsCollector) GetRegistry() *prometheus.Registry {
	if mc == nil {
		return nil
	}
	if r, ok := mc.registerer.(*prometheus.Registry); ok {
		return r
	}
	return nil
}
