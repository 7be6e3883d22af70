package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/observability"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphwriter_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphwriter_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphwriter_http_requests_in_flight",
			Help: "Current number of HTTP requests being processed",
		},
	)

	httpErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphwriter_http_errors_total",
			Help: "Total number of requests that failed with a server error",
		},
		[]string{"route", "code"},
	)

	rateLimitRejects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphwriter_rate_limit_rejects_total",
			Help: "Total number of requests rejected due to rate limiting",
		},
	)

	panicRecoveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphwriter_panic_recoveries_total",
			Help: "Total number of panics recovered in HTTP handlers",
		},
	)

	// Serializer metrics
	streamEntities = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphwriter_stream_entities_total",
			Help: "Top-level result entries written",
		},
	)

	streamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphwriter_stream_duration_seconds",
			Help:    "Wall-clock time of stream calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	streamTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphwriter_stream_truncations_total",
			Help: "Streams stopped early by the budget or a cancelled request",
		},
	)

	propertyErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphwriter_property_errors_total",
			Help: "Properties omitted or left unconverted",
		},
		[]string{"type"},
	)

	// Cache metrics
	cacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphwriter_cache_events_total",
			Help: "Document cache hits, misses and writes",
		},
		[]string{"key_type", "event"},
	)

	cacheBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "graphwriter_cache_written_bytes_total",
			Help: "Bytes written to the document cache",
		},
	)
)

// promHooks records observability events as Prometheus metrics.
type promHooks struct{}

var (
	_ observability.StreamHooks = promHooks{}
	_ observability.CacheHooks  = promHooks{}
	_ observability.HTTPHooks   = promHooks{}
)

// installHooks routes the global observability hooks to Prometheus.
func installHooks() {
	observability.SetStreamHooks(promHooks{})
	observability.SetCacheHooks(promHooks{})
	observability.SetHTTPHooks(promHooks{})
}

func (promHooks) OnStreamStart(context.Context, string, string) {}

func (promHooks) OnStreamComplete(_ context.Context, _ string, emitted int, d time.Duration, _ error) {
	streamEntities.Add(float64(emitted))
	streamDuration.Observe(d.Seconds())
}

func (promHooks) OnTruncated(context.Context, string, int, time.Duration) {
	streamTruncations.Inc()
}

func (promHooks) OnPropertyError(_ context.Context, typeName, _ string, _ error) {
	propertyErrors.WithLabelValues(typeName).Inc()
}

func (promHooks) OnCacheHit(_ context.Context, keyType string) {
	cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (promHooks) OnCacheMiss(_ context.Context, keyType string) {
	cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (promHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	cacheEvents.WithLabelValues(keyType, "set").Inc()
	cacheBytes.Add(float64(size))
}

func (promHooks) OnRequest(context.Context, string, string) {
	httpRequestsInFlight.Inc()
}

func (promHooks) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	httpRequestsInFlight.Dec()
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (promHooks) OnError(_ context.Context, _, route string, err error) {
	code := string(errors.GetCode(err))
	if code == "" {
		code = string(errors.ErrCodeInternal)
	}
	httpErrorsTotal.WithLabelValues(route, code).Inc()
}

// metricsMiddleware reports every request to the HTTP hooks. The route label
// is the chi pattern, not the raw path, so node IDs do not explode the label
// space.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		hooks.OnResponse(r.Context(), r.Method, routePattern(r), rw.Status(), time.Since(start))
	})
}
