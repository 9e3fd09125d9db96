package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface,
// the rule resolution engine and the adjustment ledger.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	resolutionsTotal *prometheus.CounterVec
	actionsResolved  *prometheus.CounterVec
	malformedRules   prometheus.Counter

	adjustmentsCreated *prometheus.CounterVec
	adjustmentsApplied prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
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

	resolutionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rule_resolutions_total",
		Help: "Total rule resolution calls per scope",
	}, []string{"scope"})

	actionsResolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rule_actions_resolved_total",
		Help: "Total actions produced by rule resolution per scope",
	}, []string{"scope"})

	malformedRules := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "malformed_rules_skipped_total",
		Help: "Stored rules skipped because their payload could not be parsed",
	})

	adjustmentsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adjustments_created_total",
		Help: "Ledger entries created per adjustment type",
	}, []string{"type"})

	adjustmentsApplied := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adjustments_applied_total",
		Help: "Ledger entries claimed into payroll entries",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	registry.MustRegister(requestDuration, requestTotal, resolutionsTotal, actionsResolved,
		malformedRules, adjustmentsCreated, adjustmentsApplied, cacheHits, cacheMisses)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		resolutionsTotal:   resolutionsTotal,
		actionsResolved:    actionsResolved,
		malformedRules:     malformedRules,
		adjustmentsCreated: adjustmentsCreated,
		adjustmentsApplied: adjustmentsApplied,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records latency and count for an HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveResolution records the outcome of one resolution call.
func (s *MetricsService) ObserveResolution(scope string, actions int) {
	s.resolutionsTotal.WithLabelValues(scope).Inc()
	s.actionsResolved.WithLabelValues(scope).Add(float64(actions))
}

// IncMalformedRule counts a skipped malformed rule.
func (s *MetricsService) IncMalformedRule() {
	s.malformedRules.Inc()
}

// IncAdjustmentCreated counts a new ledger entry.
func (s *MetricsService) IncAdjustmentCreated(adjustmentType string) {
	s.adjustmentsCreated.WithLabelValues(adjustmentType).Inc()
}

// AddAdjustmentsApplied counts entries claimed into a payroll entry.
func (s *MetricsService) AddAdjustmentsApplied(count int) {
	s.adjustmentsApplied.Add(float64(count))
}

// IncCacheHit counts a cache hit.
func (s *MetricsService) IncCacheHit() {
	s.cacheHits.Inc()
}

// IncCacheMiss counts a cache miss.
func (s *MetricsService) IncCacheMiss() {
	s.cacheMisses.Inc()
}
