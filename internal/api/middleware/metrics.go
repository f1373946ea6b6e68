package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "oportunia",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "API requests by method, route and status",
	}, []string{"method", "route", "status"})

	apiLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "oportunia",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "API request latency by method and route",
		// Niche searches fan out to the marketplace and can take several seconds.
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
	}, []string{"method", "route"})

	apiInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "oportunia",
		Subsystem: "api",
		Name:      "requests_in_flight",
		Help:      "API requests currently being served",
	})
)

// Metrics records request counts and latency keyed by chi route pattern.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiInFlight.Inc()
		defer apiInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := routeLabel(r)
		apiRequests.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		apiLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel never returns the raw URL path so slot and category ids
// cannot blow up label cardinality.
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return "unmatched"
	}
	return rctx.RoutePattern()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
