package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics of the service on a private
// registry so tests can run side by side.
type Metrics struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	admissionDecisions  *prometheus.CounterVec
	uploadBytesTotal    *prometheus.CounterVec
	auditDroppedTotal   prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics creates the metrics set on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gav_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gav_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		admissionDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gav_admission_decisions_total",
				Help: "Content admission outcomes by decision",
			},
			[]string{"decision"},
		),
		uploadBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gav_upload_bytes_total",
				Help: "Total accepted upload bytes by asset kind and storage tier",
			},
			[]string{"kind", "tier"},
		),
		auditDroppedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gav_audit_dropped_total",
				Help: "Audit events dropped because the buffer was full",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.admissionDecisions,
		m.uploadBytesTotal,
		m.auditDroppedTotal,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one completed HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveAdmission records one admission decision outcome.
func (m *Metrics) ObserveAdmission(decision string) {
	if m == nil {
		return
	}
	m.admissionDecisions.WithLabelValues(decision).Inc()
}

// ObserveUpload records accepted upload bytes.
func (m *Metrics) ObserveUpload(kind, tier string, sizeBytes int64) {
	if m == nil {
		return
	}
	m.uploadBytesTotal.WithLabelValues(kind, tier).Add(float64(sizeBytes))
}

// ObserveAuditDrop records one dropped audit event.
func (m *Metrics) ObserveAuditDrop() {
	if m == nil {
		return
	}
	m.auditDroppedTotal.Inc()
}

func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &loggingResponseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(r.Method, route, rw.Status(), time.Since(start))
	})
}
