package metrics

import "github.com/prometheus/client_golang/prometheus"

// AIMetrics exposes counters/histograms for the analysis pipeline.
type AIMetrics struct {
	analysisTotal   *prometheus.CounterVec
	analysisLatency *prometheus.HistogramVec
	contextRecords  prometheus.Histogram
}

func NewAIMetrics(reg prometheus.Registerer) *AIMetrics {
	m := &AIMetrics{
		analysisTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "ai",
			Name:      "analysis_total",
			Help:      "Total analysis requests by outcome",
		}, []string{"outcome"}),
		analysisLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "ai",
			Name:      "analysis_latency_seconds",
			Help:      "End-to-end latency of analysis requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		contextRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "ai",
			Name:      "context_records",
			Help:      "Number of medical records rendered into prompt context",
			Buckets:   []float64{0, 1, 2, 5, 10},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.analysisTotal, m.analysisLatency, m.contextRecords)
	return m
}

func (m *AIMetrics) ObserveAnalysis(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.analysisTotal.WithLabelValues(outcome).Inc()
	m.analysisLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *AIMetrics) ObserveContextRecords(n int) {
	if m == nil {
		return
	}
	m.contextRecords.Observe(float64(n))
}
