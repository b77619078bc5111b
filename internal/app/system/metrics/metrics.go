// Package metrics owns the Prometheus registry served at /metrics.
package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the portal's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	apiDuration     *prometheus.HistogramVec
	apiTotal        *prometheus.CounterVec
	viewstateLookup *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studentportal_http_request_duration_seconds",
		Help:    "Duration of served HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studentportal_http_requests_total",
		Help: "Total number of served HTTP requests",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "studentportal_portal_api_duration_seconds",
		Help:    "Duration of calls to the school backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "method", "outcome"})

	apiTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studentportal_portal_api_requests_total",
		Help: "Calls to the school backend by endpoint and outcome",
	}, []string{"endpoint", "method", "outcome"})

	viewstateLookup := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "studentportal_viewstate_lookups_total",
		Help: "View-state snapshot lookups by result",
	}, []string{"kind", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "studentportal_goroutines",
		Help: "Number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, apiDuration, apiTotal, viewstateLookup, goroutines)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		apiDuration:     apiDuration,
		apiTotal:        apiTotal,
		viewstateLookup: viewstateLookup,
	}
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveAPICall records one outbound backend call.
func (m *Metrics) ObserveAPICall(endpoint, method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.apiDuration.WithLabelValues(endpoint, method, outcome).Observe(d.Seconds())
	m.apiTotal.WithLabelValues(endpoint, method, outcome).Inc()
}

// RecordViewStateLookup counts a snapshot lookup as a hit or a miss.
func (m *Metrics) RecordViewStateLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.viewstateLookup.WithLabelValues(kind, result).Inc()
}

// Middleware records duration and status for every served request,
// labelled by the chi route pattern so path parameters do not explode
// the label space.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		label := strconv.Itoa(status)
		m.requestDuration.WithLabelValues(r.Method, route, label).Observe(time.Since(start).Seconds())
		m.requestTotal.WithLabelValues(r.Method, route, label).Inc()
	})
}
