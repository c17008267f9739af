package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the request-level series. Multiplication counts and
// durations are recorded by the multiplier package on the same registry.
type Metrics struct {
	handler http.Handler
}

var (
	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matcalc_active_requests",
		Help: "Current number of in-flight HTTP requests.",
	})
	totalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matcalc_requests_total",
		Help: "Total number of HTTP requests by path and status code.",
	}, []string{"path", "code"})
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matcalc_request_duration_seconds",
		Help:    "HTTP request latency by path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
)

func NewMetrics() *Metrics {
	return &Metrics{handler: promhttp.Handler()}
}

// Observe records one finished request.
func (m *Metrics) Observe(path string, code int, took time.Duration) {
	totalRequests.WithLabelValues(path, strconv.Itoa(code)).Inc()
	requestDuration.WithLabelValues(path).Observe(took.Seconds())
}

// WritePrometheus serves the default registry in the Prometheus text format.
func (m *Metrics) WritePrometheus(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.metrics.WritePrometheus(w, r)
}
