// Package metrics exposes Prometheus metrics for fetches, row
// classification, schema anomalies and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "thoroughbred"
)

// Recorder owns a private registry so several recorders can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	fetchesTotal    *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	rowsTotal       *prometheus.CounterVec
	anomaliesTotal  *prometheus.CounterVec
	storeWrites     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with Go and process collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "fetches_total",
			Help:      "Horse detail fetches by outcome",
		}, []string{"outcome"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of horse detail fetches",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		}, []string{"outcome"}),
		rowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "rows_total",
			Help:      "Race table rows by classification",
		}, []string{"kind"}),
		anomaliesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scraper",
			Name:      "anomalies_total",
			Help:      "Page layout anomalies detected during extraction",
		}, []string{"kind"}),
		storeWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Horse detail replacements by outcome",
		}, []string{"outcome"}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "status_code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveFetch records one fetch outcome ("success", "invalid_id", "error").
func (r *Recorder) ObserveFetch(outcome string, d time.Duration) {
	r.fetchesTotal.WithLabelValues(outcome).Inc()
	r.fetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordRows adds n rows of the given classification kind.
func (r *Recorder) RecordRows(kind string, n int) {
	if n <= 0 {
		return
	}
	r.rowsTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordAnomaly counts one extraction anomaly.
func (r *Recorder) RecordAnomaly(kind string) {
	r.anomaliesTotal.WithLabelValues(kind).Inc()
}

// RecordStoreWrite counts one store replacement.
func (r *Recorder) RecordStoreWrite(outcome string) {
	r.storeWrites.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one HTTP request.
func (r *Recorder) ObserveRequest(route string, status int, d time.Duration) {
	r.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
