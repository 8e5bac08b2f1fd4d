package observability

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the API process.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	movements       *prometheus.CounterVec
	movedQuantity   *prometheus.CounterVec
	driftParts      prometheus.Gauge
	reconciles      prometheus.Counter
}

// NewMetrics initialises the registry with HTTP and stock ledger metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scm_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scm_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scm_stock_movements_total",
		Help: "Stock movements posted by direction and reference type.",
	}, []string{"type", "reference"})
	quantity := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scm_stock_moved_quantity_total",
		Help: "Units moved through the ledger by direction.",
	}, []string{"type"})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scm_ledger_drift_parts",
		Help: "Parts whose current stock disagreed with the ledger at the last reconciliation.",
	})
	reconciles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scm_ledger_reconciliations_total",
		Help: "Completed ledger reconciliation passes.",
	})
	registry.MustRegister(requests, duration, movements, quantity, drift, reconciles,
		prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		movements:       movements,
		movedQuantity:   quantity,
		driftParts:      drift,
		reconciles:      reconciles,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency keyed by chi route pattern.
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

// ObserveMovement counts one posted stock movement.
func (m *Metrics) ObserveMovement(movementType, reference string, quantity int) {
	if m == nil {
		return
	}
	m.movements.WithLabelValues(movementType, reference).Inc()
	m.movedQuantity.WithLabelValues(movementType).Add(float64(quantity))
}

// ObserveDrift records the outcome of a reconciliation pass.
func (m *Metrics) ObserveDrift(parts int) {
	if m == nil {
		return
	}
	m.driftParts.Set(float64(parts))
	m.reconciles.Inc()
}

// Registerer exposes the registry for additional collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// Gatherer exposes the registry for reads.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
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

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack passes connection takeover through for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("observability: response writer cannot hijack")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
