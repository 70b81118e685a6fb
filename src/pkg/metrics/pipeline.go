package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "receipt_impact"

/*
PipelineMetrics exposes receipt processing counters on its own registry.

Every method is a no-op on a nil *PipelineMetrics so CLIs can run without it.
*/
type PipelineMetrics struct {
	registry *prometheus.Registry

	receiptsTotal      *prometheus.CounterVec
	receiptsInFlight   prometheus.Gauge
	stageDuration      *prometheus.HistogramVec
	passConfidence     *prometheus.HistogramVec
	selectedModeTotal  *prometheus.CounterVec
	correctionTotal    *prometheus.CounterVec
	productsTotal      *prometheus.CounterVec
	classifierMisses   *prometheus.CounterVec
	tierTotal          *prometheus.CounterVec
	httpRequestsTotal  *prometheus.CounterVec
	httpRequestSeconds *prometheus.HistogramVec
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	m := &PipelineMetrics{
		registry: registry,
		receiptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "receipts_total",
			Help: "Processed receipts by outcome (success or failure kind).",
		}, []string{"status"}),
		receiptsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "receipts_in_flight",
			Help: "Receipts currently being processed.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		passConfidence: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ocr", Name: "pass_confidence",
			Help:    "Mean word confidence of each OCR pass.",
			Buckets: prometheus.LinearBuckets(10, 10, 9),
		}, []string{"mode"}),
		selectedModeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ocr", Name: "selected_mode_total",
			Help: "Which segmentation mode won the pass selection.",
		}, []string{"mode"}),
		correctionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "llm", Name: "corrections_total",
			Help: "Correction outcomes (skipped, corrected, fallback).",
		}, []string{"outcome"}),
		productsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "parser", Name: "products_total",
			Help: "Parsed products and discarded anchors.",
		}, []string{"result"}),
		classifierMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "classifier", Name: "misses_total",
			Help: "Products that fell back to the default category.",
		}, []string{"store"}),
		tierTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "impact", Name: "tier_total",
			Help: "Receipts by environmental tier.",
		}, []string{"tier"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		httpRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	registry.MustRegister(
		m.receiptsTotal, m.receiptsInFlight, m.stageDuration, m.passConfidence, m.selectedModeTotal,
		m.correctionTotal, m.productsTotal, m.classifierMisses, m.tierTotal,
		m.httpRequestsTotal, m.httpRequestSeconds,
	)
	return m
}

func (m *PipelineMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) StartReceipt() {
	if m == nil {
		return
	}
	m.receiptsInFlight.Inc()
}

// FinishReceipt records the outcome; status is "success" or the failure kind.
func (m *PipelineMetrics) FinishReceipt(status string) {
	if m == nil {
		return
	}
	m.receiptsInFlight.Dec()
	m.receiptsTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObservePass(mode string, confidence float64) {
	if m == nil {
		return
	}
	m.passConfidence.WithLabelValues(mode).Observe(confidence)
}

func (m *PipelineMetrics) SelectedMode(mode string) {
	if m == nil {
		return
	}
	m.selectedModeTotal.WithLabelValues(mode).Inc()
}

func (m *PipelineMetrics) Correction(outcome string) {
	if m == nil {
		return
	}
	m.correctionTotal.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) ParsedProducts(parsed, discarded int) {
	if m == nil {
		return
	}
	m.productsTotal.WithLabelValues("parsed").Add(float64(parsed))
	m.productsTotal.WithLabelValues("discarded").Add(float64(discarded))
}

func (m *PipelineMetrics) ClassifierMiss(store string) {
	if m == nil {
		return
	}
	m.classifierMisses.WithLabelValues(store).Inc()
}

func (m *PipelineMetrics) Tier(tier string) {
	if m == nil {
		return
	}
	m.tierTotal.WithLabelValues(tier).Inc()
}

func (m *PipelineMetrics) ObserveHTTP(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestSeconds.WithLabelValues(method, path).Observe(duration.Seconds())
}
