package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Shared HTTP metrics.
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
)

// Domain metrics.
var (
	PointsAwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_points_awarded_total",
			Help: "Total points persisted to the contribution ledger.",
		},
		[]string{"action", "source"},
	)

	LedgerAppendFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_append_failures_total",
		Help: "Ledger writes that failed and were dropped best-effort.",
	})

	DirectoryFetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_fetch_failures_total",
			Help: "Per-server identity directory calls that failed and were skipped.",
		},
		[]string{"call"},
	)

	SessionResolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_resolutions_total",
			Help: "Session resolve/refresh operations.",
		},
		[]string{"trigger"},
	)
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		PointsAwardedTotal, LedgerAppendFailures, DirectoryFetchFailures, SessionResolutions,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CanonicalPath collapses per-entity path segments into a fixed label so the
// metric cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if rest, ok := strings.CutPrefix(path, "/v1/users/"); ok {
		switch {
		case strings.HasSuffix(rest, "/contributions") && strings.Count(rest, "/") == 1:
			return "/v1/users/:id/contributions"
		case strings.HasSuffix(rest, "/rank") && strings.Count(rest, "/") == 1:
			return "/v1/users/:id/rank"
		}
	}
	if rest, ok := strings.CutPrefix(path, "/v1/resources/"); ok {
		if strings.HasSuffix(rest, "/quantity") && strings.Count(rest, "/") == 1 {
			return "/v1/resources/:id/quantity"
		}
	}
	return path
}

// Instrument wraps a handler with RPS/latency/in-flight measurements.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for metrics labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
