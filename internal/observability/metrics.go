package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/freshmandi/freshmandi/internal/ledger"
)

// Metrics collects the Prometheus metrics for the application: HTTP traffic
// plus the ledger engine counters. All methods are nil-safe so wiring can
// disable metrics by passing nil.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	eventsApplied   *prometheus.CounterVec
	stockClamped    prometheus.Counter
	balanceCrossed  prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freshmandi_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "freshmandi_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "freshmandi_ledger_events_applied_total",
		Help: "Ledger events applied, by event kind.",
	}, []string{"kind"})
	clamped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "freshmandi_ledger_stock_clamped_total",
		Help: "Stock values clamped at zero during event application.",
	})
	crossed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "freshmandi_ledger_balance_crossed_total",
		Help: "Outstanding balances driven below zero and flagged.",
	})
	registry.MustRegister(requests, duration, events, clamped, crossed)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		eventsApplied:   events,
		stockClamped:    clamped,
		balanceCrossed:  crossed,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for each HTTP request.
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

// EventApplied implements the ledger metrics port.
func (m *Metrics) EventApplied(kind ledger.EventKind) {
	if m == nil {
		return
	}
	m.eventsApplied.WithLabelValues(string(kind)).Inc()
}

// StockClamped implements the ledger metrics port.
func (m *Metrics) StockClamped() {
	if m == nil {
		return
	}
	m.stockClamped.Inc()
}

// BalanceCrossed implements the ledger metrics port.
func (m *Metrics) BalanceCrossed() {
	if m == nil {
		return
	}
	m.balanceCrossed.Inc()
}

// Registerer exposes the registry for custom metric registration.
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
