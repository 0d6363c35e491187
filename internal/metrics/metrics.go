package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Authentication attempts by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	rateLimitDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_denials_total",
			Help: "Requests rejected by the rate limiter, per tier.",
		},
		[]string{"tier"},
	)

	activeRefreshTokens = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "auth_active_refresh_tokens",
		Help: "Refresh tokens currently registered for rotation.",
	})
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight,
		httpRequestsTotal,
		httpRequestDuration,
		authAttemptsTotal,
		rateLimitDenialsTotal,
		activeRefreshTokens,
	)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// AuthAttempt records the outcome of a login, register, google or
// refresh operation.
func AuthAttempt(operation string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	authAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}

// RateLimitDenied records a request rejected by the given tier.
func RateLimitDenied(tier string) {
	rateLimitDenialsTotal.WithLabelValues(tier).Inc()
}

// SetActiveRefreshTokens publishes the current refresh-token count.
func SetActiveRefreshTokens(n int) {
	activeRefreshTokens.Set(float64(n))
}

// Instrument measures request rate, latency and in-flight count.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
