package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestLeadMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLeadMetrics(reg)

	m.ObserveSubmission("contact-form", "accepted")
	m.ObserveSubmission("contact-form", "accepted")
	m.ObserveSideEffect("crm", false)
	m.ObservePipelineLatency("contact-form", 0.25)

	if got := testutil.ToFloat64(m.submissionsTotal.WithLabelValues("contact-form", "accepted")); got != 2 {
		t.Fatalf("expected 2 accepted submissions, got %v", got)
	}
	if got := testutil.ToFloat64(m.sideEffectTotal.WithLabelValues("crm", "false")); got != 1 {
		t.Fatalf("expected 1 failed crm attempt, got %v", got)
	}
	if got := testutil.CollectAndCount(m.pipelineLatency); got != 1 {
		t.Fatalf("expected 1 latency series, got %d", got)
	}
}

func TestLeadMetricsNilSafe(t *testing.T) {
	var m *LeadMetrics
	m.ObserveSubmission("contact-form", "accepted")
	m.ObserveSideEffect("notification", true)
	m.ObservePipelineLatency("contact-form", 0.1)
}
