package internal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"warehouse-inventory-api/internal/apperr"
	"warehouse-inventory-api/internal/inventory"
	"warehouse-inventory-api/pkg/importer"
)

// Metrics provides Prometheus metrics for HTTP requests and inventory events.
// It satisfies inventory.Recorder.
type Metrics struct {
	reqTotal    *prometheus.CounterVec
	reqLatency  *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	auditScans  *prometheus.CounterVec
	importRows  *prometheus.CounterVec
	registry    *prometheus.Registry
}

// NewMetrics creates a new Metrics instance with a private Prometheus registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		reqTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		reqLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pick_transitions_total",
				Help: "Lifecycle transitions attempted, by event and outcome code",
			},
			[]string{"event", "outcome"},
		),
		auditScans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_scans_total",
				Help: "Audit scans by result",
			},
			[]string{"result"},
		),
		importRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "import_rows_total",
				Help: "Rows seen by bulk imports, by result",
			},
			[]string{"result"},
		),
		registry: registry,
	}

	registry.MustRegister(m.reqTotal, m.reqLatency, m.transitions, m.auditScans, m.importRows)
	return m
}

// Transition counts one lifecycle attempt
func (m *Metrics) Transition(event inventory.Event, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.KindOf(err))
		if e, ok := apperr.As(err); ok {
			outcome = e.Code()
		}
	}
	m.transitions.WithLabelValues(string(event), outcome).Inc()
}

// Scan counts one audit scan
func (m *Metrics) Scan(known bool) {
	result := "verified"
	if !known {
		result = "unknown"
	}
	m.auditScans.WithLabelValues(result).Inc()
}

// Imported records the outcome of one import run
func (m *Metrics) Imported(sum importer.ImportSummary) {
	if sum.DryRun {
		return
	}
	m.importRows.WithLabelValues("inserted").Add(float64(sum.Inserted))
	m.importRows.WithLabelValues("skipped").Add(float64(sum.Skipped))
	m.importRows.WithLabelValues("error").Add(float64(sum.Errors))
}

// Middleware returns a Chi middleware that collects metrics
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &statusRecorder{ResponseWriter: w, code: http.StatusOK}

			next.ServeHTTP(rw, r)

			// route pattern keeps item ids out of the label set
			path := r.URL.Path
			if chiCtx := chi.RouteContext(r.Context()); chiCtx != nil {
				if pattern := chiCtx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			status := strconv.Itoa(rw.code)
			m.reqTotal.WithLabelValues(r.Method, path, status).Inc()
			m.reqLatency.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler returns an http.Handler that serves Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the HTTP status code for metrics
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.code = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}
