package observability

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

// Metrics holds the service's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	progressOps      *prometheus.CounterVec
	progressConflict prometheus.Counter
	contentBytes     prometheus.Histogram
	exportBytes      *prometheus.CounterVec
	sseEvents        *prometheus.CounterVec
}

func NewMetrics(log *logger.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_api_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "taskmaster_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "taskmaster_api_inflight_requests",
			Help: "HTTP requests currently being served",
		}),
		progressOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_progress_operations_total",
			Help: "Progress document operations by operation and outcome",
		}, []string{"op", "outcome"}),
		progressConflict: f.NewCounter(prometheus.CounterOpts{
			Name: "taskmaster_progress_version_conflicts_total",
			Help: "Saves or restores rejected because the version moved",
		}),
		contentBytes: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskmaster_progress_content_bytes",
			Help:    "Size of saved progress document content",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}),
		exportBytes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_progress_export_bytes_total",
			Help: "Bytes rendered by progress exports by format and storage",
		}, []string{"format", "storage"}),
		sseEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "taskmaster_sse_events_total",
			Help: "SSE events emitted by event name",
		}, []string{"event"}),
	}
	if log != nil {
		log.Info("metrics initialized")
	}
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RegisterDB exports database/sql pool statistics under db_name.
func (m *Metrics) RegisterDB(sqlDB *sql.DB, dbName string) {
	if m == nil || sqlDB == nil {
		return
	}
	_ = m.registry.Register(collectors.NewDBStatsCollector(sqlDB, dbName))
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveProgressOp counts one operation; outcome is "ok" or an error code.
func (m *Metrics) ObserveProgressOp(op, outcome string) {
	if m == nil {
		return
	}
	m.progressOps.WithLabelValues(op, outcome).Inc()
	if outcome == "version_conflict" {
		m.progressConflict.Inc()
	}
}

func (m *Metrics) ObserveContentSize(n int) {
	if m == nil {
		return
	}
	m.contentBytes.Observe(float64(n))
}

func (m *Metrics) AddExportBytes(format, storage string, n int64) {
	if m == nil {
		return
	}
	m.exportBytes.WithLabelValues(format, storage).Add(float64(n))
}

func (m *Metrics) IncSSEEvent(event string) {
	if m == nil {
		return
	}
	m.sseEvents.WithLabelValues(event).Inc()
}
