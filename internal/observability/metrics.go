package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the HTTP surface and ingestion runs.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	ingestRuns      *prometheus.CounterVec
	ingestRows      prometheus.Counter
	ingestSuppliers prometheus.Counter
	ingestDuration  prometheus.Histogram
}

// NewMetrics initialises the registry and base collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "invoice_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invoice_ingest_runs_total",
		Help: "Ingestion runs by outcome kind.",
	}, []string{"outcome"})
	rows := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoice_ingest_invoices_total",
		Help: "Invoices persisted by successful ingestion runs.",
	})
	suppliers := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invoice_ingest_suppliers_created_total",
		Help: "Suppliers created by successful ingestion runs.",
	})
	ingestDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "invoice_ingest_duration_seconds",
		Help:    "Wall time of ingestion runs.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
	registry.MustRegister(requests, duration, runs, rows, suppliers, ingestDuration)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		ingestRuns:      runs,
		ingestRows:      rows,
		ingestSuppliers: suppliers,
		ingestDuration:  ingestDuration,
	}
}

// Handler returns the /metrics endpoint handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveIngestion records the outcome of one ingestion run. Outcome is "success"
// or the error kind that aborted the run.
func (m *Metrics) ObserveIngestion(outcome string, invoices, suppliersCreated int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.ingestRuns.WithLabelValues(outcome).Inc()
	m.ingestDuration.Observe(elapsed.Seconds())
	if outcome == "success" {
		m.ingestRows.Add(float64(invoices))
		m.ingestSuppliers.Add(float64(suppliersCreated))
	}
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
