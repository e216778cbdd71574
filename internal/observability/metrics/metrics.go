package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// LeadMetrics exposes counters/histograms for the lead pipeline.
type LeadMetrics struct {
	submissionsTotal *prometheus.CounterVec
	sideEffectTotal  *prometheus.CounterVec
	pipelineLatency  *prometheus.HistogramVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agency",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Total lead submissions by source and result",
		}, []string{"source", "status"}),
		sideEffectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agency",
			Subsystem: "leads",
			Name:      "side_effect_total",
			Help:      "Best-effort side effect attempts (crm, notification)",
		}, []string{"effect", "delivered"}),
		pipelineLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "agency",
			Subsystem: "leads",
			Name:      "pipeline_seconds",
			Help:      "Latency of the lead pipeline including side effects",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.sideEffectTotal, m.pipelineLatency)
	return m
}

// ObserveSubmission counts a submission; status is accepted, rejected or error.
func (m *LeadMetrics) ObserveSubmission(source, status string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(source, status).Inc()
}

func (m *LeadMetrics) ObserveSideEffect(effect string, delivered bool) {
	if m == nil {
		return
	}
	m.sideEffectTotal.WithLabelValues(effect, strconv.FormatBool(delivered)).Inc()
}

func (m *LeadMetrics) ObservePipelineLatency(source string, seconds float64) {
	if m == nil {
		return
	}
	m.pipelineLatency.WithLabelValues(source).Observe(seconds)
}
