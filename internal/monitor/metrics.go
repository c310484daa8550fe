package monitor

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the dashboard service. Each
// instance owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	evaluations      prometheus.Counter
	anomaliesFlagged prometheus.Counter
	baselineFailures prometheus.Counter
	panelErrors      *prometheus.CounterVec

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
}

// NewMetrics creates and registers all collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "evaluations_total",
			Help: "Total number of anomaly evaluation cycles",
		}),
		anomaliesFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anomalies_flagged_total",
			Help: "Total number of readings flagged as anomalous, before truncation",
		}),
		baselineFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baseline_failures_total",
			Help: "Total number of per-machine baseline failures",
		}),
		panelErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "panel_errors_total",
			Help: "Total number of dashboard panels that failed to load",
		}, []string{"panel"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of lookup cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of lookup cache misses",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.duration,
		m.evaluations, m.anomaliesFlagged, m.baselineFailures, m.panelErrors,
		m.cacheHits, m.cacheMisses,
	)
	return m
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordEvaluation records one evaluation cycle.
func (m *Metrics) RecordEvaluation(flagged, failures int) {
	m.evaluations.Inc()
	m.anomaliesFlagged.Add(float64(flagged))
	m.baselineFailures.Add(float64(failures))
}

// RecordPanelError records a dashboard panel that failed to load.
func (m *Metrics) RecordPanelError(panel string) {
	m.panelErrors.WithLabelValues(panel).Inc()
}

func (m *Metrics) CacheHit()  { m.cacheHits.Inc() }
func (m *Metrics) CacheMiss() { m.cacheMisses.Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
