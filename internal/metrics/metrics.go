package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "brave_search"

type Metrics struct {
	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration *prometheus.HistogramVec
	SearchResultsTotal    *prometheus.CounterVec
	RequestsInFlight      prometheus.Gauge

	PacerWaitDuration prometheus.Histogram

	FanoutRequestsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New регистрирует метрики в собственном реестре, чтобы тесты не конфликтовали
func New() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SearchRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of search API requests",
			},
			[]string{"endpoint", "status"},
		),
		SearchRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Search request duration in seconds, pacer wait included",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		SearchResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "results_total",
				Help:      "Total number of normalized results returned",
			},
			[]string{"endpoint"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of search calls waiting in the pacer or in progress",
			},
		),
		PacerWaitDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pacer_wait_seconds",
				Help:      "Time spent queued in the pacer before admission",
				Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
		FanoutRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fanout_total",
				Help:      "Total number of fan-out search batches",
			},
			[]string{"mode", "status"},
		),
		registry: reg,
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSearchRequest(endpoint, status string, duration time.Duration) {
	m.SearchRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.SearchRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Metrics) RecordResults(endpoint string, n int) {
	m.SearchResultsTotal.WithLabelValues(endpoint).Add(float64(n))
}

func (m *Metrics) RecordPacerWait(wait time.Duration) {
	m.PacerWaitDuration.Observe(wait.Seconds())
}

func (m *Metrics) RecordFanout(mode, status string) {
	m.FanoutRequestsTotal.WithLabelValues(mode, status).Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
