// Package metrics provides Prometheus metrics for the API server.
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

const namespace = "property_manager"

// Metrics holds all collectors, registered on their own registry
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge
	storeRecords     *prometheus.GaugeVec
	smsTotal         *prometheus.CounterVec
	importedTotal    *prometheus.CounterVec
	healthStatus     *prometheus.GaugeVec
}

// New creates the collectors together with the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		requestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
		storeRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "store_records",
				Help:      "Number of records per JSON collection at the last scrape of /health",
			},
			[]string{"collection"},
		),
		smsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sms_messages_total",
				Help:      "SMS send attempts by result",
			},
			[]string{"result"},
		),
		importedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_import_lines_total",
				Help:      "Bank statement lines processed by outcome",
			},
			[]string{"outcome"},
		),
		healthStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "health_status",
				Help:      "Result of the last health check (1 = healthy, 0 = unhealthy)",
			},
			[]string{"check"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records one finished request. route is the matched
// pattern, not the raw path.
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) IncInFlight() { m.requestsInFlight.Inc() }
func (m *Metrics) DecInFlight() { m.requestsInFlight.Dec() }

// SetStoreCounts publishes the record count of every collection
func (m *Metrics) SetStoreCounts(counts map[string]int) {
	for name, n := range counts {
		m.storeRecords.WithLabelValues(name).Set(float64(n))
	}
}

// RecordSMS counts a send attempt
func (m *Metrics) RecordSMS(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.smsTotal.WithLabelValues(result).Inc()
}

// RecordImport counts the outcome of a bank statement import
func (m *Metrics) RecordImport(inserted, skipped, matched, failed int) {
	m.importedTotal.WithLabelValues("inserted").Add(float64(inserted))
	m.importedTotal.WithLabelValues("skipped").Add(float64(skipped))
	m.importedTotal.WithLabelValues("matched").Add(float64(matched))
	m.importedTotal.WithLabelValues("failed").Add(float64(failed))
}

// SetHealth records the result of a named health check
func (m *Metrics) SetHealth(check string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	m.healthStatus.WithLabelValues(check).Set(v)
}
