package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsActive  prometheus.Gauge

	// Audit metrics
	AuditsTotal       *prometheus.CounterVec
	AuditDuration     prometheus.Histogram
	AuditsActive      prometheus.Gauge
	OpportunityScores prometheus.Histogram
	TagsAssigned      *prometheus.CounterVec
	StageTransitions  *prometheus.CounterVec

	// Collaborator metrics
	SerpRequestsTotal  *prometheus.CounterVec
	PagesFetchedTotal  *prometheus.CounterVec
	SnapshotsStored    prometheus.Counter
	ProbeFailuresTotal prometheus.Counter

	// System metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
	GoroutinesActive    prometheus.Gauge
}

// NewMetrics creates a new metrics instance with all Prometheus metrics registered
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "leadaudit"
	}

	m := &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_active",
				Help:      "Number of active HTTP requests",
			},
		),

		AuditsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audits_total",
				Help:      "Total number of audits by outcome",
			},
			[]string{"status"},
		),
		AuditDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "audit_duration_seconds",
				Help:      "Full audit duration in seconds",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90, 120},
			},
		),
		AuditsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "audits_active",
				Help:      "Number of audits currently running",
			},
		),
		OpportunityScores: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "opportunity_score",
				Help:      "Distribution of computed opportunity scores",
				Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),
		TagsAssigned: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tags_assigned_total",
				Help:      "Total number of commercial tags assigned",
			},
			[]string{"tag"},
		),
		StageTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_transitions_total",
				Help:      "Total number of automatic pipeline stage transitions",
			},
			[]string{"from", "to"},
		),

		SerpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "serp_requests_total",
				Help:      "Total number of SERP collaborator requests",
			},
			[]string{"status"},
		),
		PagesFetchedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_fetched_total",
				Help:      "Total number of pages fetched during audits",
			},
			[]string{"status"},
		),
		SnapshotsStored: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_stored_total",
				Help:      "Total number of HTML snapshots archived",
			},
		),
		ProbeFailuresTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "probe_failures_total",
				Help:      "Total number of performance probe failures",
			},
		),

		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_active",
				Help:      "Number of active database connections",
			},
		),
		DBConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Number of idle database connections",
			},
		),
		GoroutinesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "goroutines_active",
				Help:      "Number of active goroutines",
			},
		),
	}

	return m
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAudit records one finished audit.
func (m *Metrics) RecordAudit(status string, duration time.Duration) {
	m.AuditsTotal.WithLabelValues(status).Inc()
	m.AuditDuration.Observe(duration.Seconds())
}

// RecordScore records a computed opportunity score.
func (m *Metrics) RecordScore(score int) {
	m.OpportunityScores.Observe(float64(score))
}

// RecordTag records a tag assignment.
func (m *Metrics) RecordTag(tag string) {
	m.TagsAssigned.WithLabelValues(tag).Inc()
}

// RecordStageTransition records an automatic pipeline move.
func (m *Metrics) RecordStageTransition(from, to string) {
	m.StageTransitions.WithLabelValues(from, to).Inc()
}

// RecordSerpRequest records a SERP collaborator call.
func (m *Metrics) RecordSerpRequest(status string) {
	m.SerpRequestsTotal.WithLabelValues(status).Inc()
}

// RecordPageFetch records a crawler page fetch.
func (m *Metrics) RecordPageFetch(status string) {
	m.PagesFetchedTotal.WithLabelValues(status).Inc()
}

// HTTPMiddleware returns middleware for recording HTTP metrics
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsActive.Inc()
		defer m.HTTPRequestsActive.Dec()

		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		m.RecordHTTPRequest(r.Method, r.URL.Path, wrapped.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Global metrics instance
var globalMetrics *Metrics

// InitMetrics initializes the global metrics instance
func InitMetrics(namespace string) *Metrics {
	globalMetrics = NewMetrics(namespace)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		globalMetrics = NewMetrics("leadaudit")
	}
	return globalMetrics
}
