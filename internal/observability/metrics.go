package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/grammar-annotation-backend/internal/platform/envutil"
	"github.com/yungbote/grammar-annotation-backend/internal/platform/logger"
)

const namespace = "annotation"

// Metrics holds the service collectors on a private registry. Every method is
// a no-op on a nil receiver so callers never branch on METRICS_ENABLED.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	suggestions     *prometheus.CounterVec
	suggestLatency  prometheus.Histogram
	batchSize       prometheus.Histogram
	catalogSize     prometheus.Gauge
	catalogReloads  *prometheus.CounterVec
	feedback        *prometheus.CounterVec
	collaboratorErr *prometheus.CounterVec
}

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", true)
}

// Init returns nil when METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		if log != nil {
			log.Info("metrics disabled")
		}
		return nil
	}
	return NewMetrics(prometheus.NewRegistry())
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request latency in seconds by method/route/status.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_inflight_requests",
			Help:      "In-flight API requests.",
		}),
		suggestions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suggestions_total",
			Help:      "Suggestions emitted by decision.",
		}, []string{"decision"}),
		suggestLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggest_duration_seconds",
			Help:      "Time to score one question.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		batchSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "suggest_batch_size",
			Help:      "Questions per batch request.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		catalogSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_knowledge_points",
			Help:      "Knowledge points in the live catalog.",
		}),
		catalogReloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Catalog reloads by source and status.",
		}, []string{"source", "status"}),
		feedback: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Reviewer feedback by outcome.",
		}, []string{"outcome"}),
		collaboratorErr: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Failures talking to neo4j, redis or postgres.",
		}, []string{"collaborator", "op"}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
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

// ObserveSuggest records one scored question and the decisions it produced.
func (m *Metrics) ObserveSuggest(decisions []string, dur time.Duration) {
	if m == nil {
		return
	}
	m.suggestLatency.Observe(dur.Seconds())
	for _, d := range decisions {
		m.suggestions.WithLabelValues(d).Inc()
	}
}

func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}

func (m *Metrics) ObserveCatalogReload(source string, size int, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	} else {
		m.catalogSize.Set(float64(size))
	}
	m.catalogReloads.WithLabelValues(source, status).Inc()
}

func (m *Metrics) IncFeedback(accepted bool) {
	if m == nil {
		return
	}
	m.feedback.WithLabelValues(strconv.FormatBool(accepted)).Inc()
}

func (m *Metrics) IncCollaboratorError(collaborator, op string) {
	if m == nil {
		return
	}
	m.collaboratorErr.WithLabelValues(collaborator, op).Inc()
}
