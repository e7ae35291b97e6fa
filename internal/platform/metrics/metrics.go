package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the playback service.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	errorsTotal         prometheus.Counter
	manifestLoadsTotal  prometheus.Counter
	loadRecoveriesTotal *prometheus.CounterVec
	fatalErrorsTotal    *prometheus.CounterVec
	cueLookupsTotal     prometheus.Counter
	sessionWritesTotal  prometheus.Counter
	activeSessions      prometheus.Gauge
}

// New creates and registers Prometheus metrics for the playback service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_request_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	manifestLoadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_manifest_loads_total",
		Help: "Total number of manifest load pipelines started",
	})
	loadRecoveriesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "player_load_recoveries_total",
		Help: "Total number of automatic load recoveries, by error kind",
	}, []string{"kind"})
	fatalErrorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "player_fatal_errors_total",
		Help: "Total number of load errors surfaced to the user, by error kind",
	}, []string{"kind"})
	cueLookupsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_cue_lookups_total",
		Help: "Total number of scrub preview cue lookups",
	})
	sessionWritesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "player_session_writes_total",
		Help: "Total number of session record writes to the store",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "player_active_sessions",
		Help: "Number of mounted playback sessions",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		manifestLoadsTotal,
		loadRecoveriesTotal,
		fatalErrorsTotal,
		cueLookupsTotal,
		sessionWritesTotal,
		activeSessions,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		errorsTotal:         errorsTotal,
		manifestLoadsTotal:  manifestLoadsTotal,
		loadRecoveriesTotal: loadRecoveriesTotal,
		fatalErrorsTotal:    fatalErrorsTotal,
		cueLookupsTotal:     cueLookupsTotal,
		sessionWritesTotal:  sessionWritesTotal,
		activeSessions:      activeSessions,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the request errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncManifestLoads increments the manifest load counter.
func (m *Metrics) IncManifestLoads() {
	m.manifestLoadsTotal.Inc()
}

// IncLoadRecoveries increments the recovery counter for the given error kind.
func (m *Metrics) IncLoadRecoveries(kind string) {
	m.loadRecoveriesTotal.WithLabelValues(kind).Inc()
}

// IncFatalErrors increments the surfaced error counter for the given kind.
func (m *Metrics) IncFatalErrors(kind string) {
	m.fatalErrorsTotal.WithLabelValues(kind).Inc()
}

// IncCueLookups increments the cue lookup counter.
func (m *Metrics) IncCueLookups() {
	m.cueLookupsTotal.Inc()
}

// IncSessionWrites increments the session write counter.
func (m *Metrics) IncSessionWrites() {
	m.sessionWritesTotal.Inc()
}

// SetActiveSessions sets the active sessions gauge.
func (m *Metrics) SetActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
