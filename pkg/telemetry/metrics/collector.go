package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ganymede"

// Collector owns all Prometheus metrics for the server. It registers against
// a private registry so tests and embedders never collide with the global
// default registry. The collector doubles as the token authority's Observer,
// so authentication outcomes flow into it without extra plumbing.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	tokenConfigured prometheus.Gauge
	authSuccess     prometheus.Counter
	authFailure     *prometheus.CounterVec

	rateLimitExceeded *prometheus.CounterVec
}

// NewCollector creates a collector with all metrics registered on a fresh
// registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests handled, by method, path and status code.",
		}, []string{"method", "path", "status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Request handling latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "path"}),

		tokenConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_configured",
			Help:      "Whether an API token hash is configured (1) or not (0).",
		}),

		authSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_success_total",
			Help:      "Successful authentications.",
		}),

		authFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failure_total",
			Help:      "Failed authentications, by reason.",
		}, []string{"reason"}),

		rateLimitExceeded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_exceeded_total",
			Help:      "Requests rejected by the rate limiter, by endpoint.",
		}, []string{"endpoint"}),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.tokenConfigured,
		c.authSuccess,
		c.authFailure,
		c.rateLimitExceeded,
	)

	return c
}

// RecordRequest records one handled request. path must be the registered
// route pattern, not the raw URL, to keep cardinality bounded.
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	c.requestsTotal.WithLabelValues(method, path, code).Inc()
	c.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// AuthSuccess implements the token authority's Observer.
func (c *Collector) AuthSuccess() {
	c.authSuccess.Inc()
}

// AuthFailure implements the token authority's Observer.
func (c *Collector) AuthFailure(reason string) {
	c.authFailure.WithLabelValues(reason).Inc()
}

// SetTokenConfigured implements the token authority's Observer.
func (c *Collector) SetTokenConfigured(configured bool) {
	if configured {
		c.tokenConfigured.Set(1)
	} else {
		c.tokenConfigured.Set(0)
	}
}

// RecordRateLimitExceeded counts a 429 on endpoint.
func (c *Collector) RecordRateLimitExceeded(endpoint string) {
	c.rateLimitExceeded.WithLabelValues(endpoint).Inc()
}

// Registry returns the private Prometheus registry, for the /metrics
// handler and for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
