package obs

import (
	"net/http"
	"strconv"
	"strings"
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

	authLogins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	authTokenValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_token_validations_total",
			Help: "Bearer token validations by result.",
		},
		[]string{"result"},
	)

	authRegistrations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_registrations_total",
		Help: "Accounts created through self-registration.",
	})

	authSessionsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_sessions_swept_total",
		Help: "Expired sessions removed by the sweep loop.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		authLogins, authTokenValidations, authRegistrations, authSessionsSwept,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLogin records a login attempt; result is "ok" or "denied".
func ObserveLogin(result string) {
	authLogins.WithLabelValues(result).Inc()
}

// ObserveTokenValidation records a token validation; result is "ok" or "denied".
func ObserveTokenValidation(result string) {
	authTokenValidations.WithLabelValues(result).Inc()
}

// ObserveRegistration records a successful self-registration.
func ObserveRegistration() {
	authRegistrations.Inc()
}

// ObserveSessionsSwept records sessions removed for storage hygiene.
func ObserveSessionsSwept(n int64) {
	if n > 0 {
		authSessionsSwept.Add(float64(n))
	}
}

// Instrument wraps the handler with RPS/latency/in-flight measurements.
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

// CanonicalPath collapses per-resource path segments so metric label
// cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	if rest, ok := strings.CutPrefix(path, "/auth/users/"); ok {
		if rest != "" && !strings.Contains(rest, "/") {
			return "/auth/users/:id"
		}
	}
	return path
}

// statusWriter captures the response code for labeling.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
