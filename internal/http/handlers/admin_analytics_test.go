package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synura/agency-api/internal/analytics"
	"github.com/synura/agency-api/pkg/logging"
)

var analyticsNow = time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC)

type fakeReporter struct {
	err       error
	partial   bool
	gotKind   string
	gotStart  time.Time
	gotEnd    time.Time
	gotLimit  int
	dashboard analytics.Dashboard
}

func (f *fakeReporter) Usage(_ context.Context, start, end time.Time) (analytics.UsageReport, error) {
	f.gotKind, f.gotStart, f.gotEnd = "usage", start, end
	return analytics.UsageReport{Summary: analytics.Summary{TotalRequests: 7}}, f.err
}

func (f *fakeReporter) Leads(_ context.Context, start time.Time) (analytics.LeadReport, error) {
	f.gotKind, f.gotStart = "leads", start
	return analytics.LeadReport{Total: 3}, f.err
}

func (f *fakeReporter) ROI(_ context.Context, start, end time.Time) (analytics.ROIReport, error) {
	f.gotKind, f.gotStart, f.gotEnd = "roi", start, end
	return analytics.ROIReport{CalculationsPerformed: 2}, f.err
}

func (f *fakeReporter) Recent(_ context.Context, limit int) (analytics.RecentActivity, error) {
	f.gotKind, f.gotLimit = "recent", limit
	return analytics.RecentActivity{}, f.err
}

func (f *fakeReporter) Summary(_ context.Context, start, end time.Time) (analytics.SummaryReport, error) {
	f.gotKind, f.gotStart, f.gotEnd = "summary", start, end
	return analytics.SummaryReport{}, f.err
}

func (f *fakeReporter) Dashboard(context.Context) analytics.DashboardReport {
	return analytics.DashboardReport{
		Dashboard: f.dashboard,
		Monthly:   analytics.Range{Start: analyticsNow.Add(-30 * 24 * time.Hour), End: analyticsNow},
		Weekly:    analytics.Range{Start: analyticsNow.Add(-7 * 24 * time.Hour), End: analyticsNow},
		Partial:   f.partial,
	}
}

func newAnalyticsHandler(rep AnalyticsReporter) *AdminAnalyticsHandler {
	h := NewAdminAnalyticsHandler(rep, logging.Discard())
	h.now = func() time.Time { return analyticsNow }
	return h
}

func TestGetAnalytics_DefaultsToSummaryOverThirtyDays(t *testing.T) {
	rep := &fakeReporter{}
	rec := httptest.NewRecorder()
	newAnalyticsHandler(rep).GetAnalytics(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "summary", rep.gotKind)
	assert.Equal(t, analyticsNow.Add(-30*24*time.Hour), rep.gotStart)
	assert.Equal(t, analyticsNow, rep.gotEnd)

	var resp AnalyticsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "summary", resp.Type)
}

func TestGetAnalytics_Types(t *testing.T) {
	tests := []struct {
		query string
		kind  string
		want  string
	}{
		{"type=usage&startDate=2025-03-01T00:00:00Z&endDate=2025-03-08T00:00:00Z", "usage", `"totalRequests":7`},
		{"type=leads", "leads", `"total":3`},
		{"type=roi", "roi", `"calculationsPerformed":2`},
		{"type=recent&limit=5", "recent", `"type":"recent"`},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			rep := &fakeReporter{}
			rec := httptest.NewRecorder()
			newAnalyticsHandler(rep).GetAnalytics(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics?"+tt.query, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.kind, rep.gotKind)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}

	rep := &fakeReporter{}
	newAnalyticsHandler(rep).GetAnalytics(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/admin/analytics?type=usage&startDate=2025-03-01T00:00:00Z&endDate=2025-03-08T00:00:00Z", nil))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), rep.gotStart)
	assert.Equal(t, time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC), rep.gotEnd)

	rep = &fakeReporter{}
	newAnalyticsHandler(rep).GetAnalytics(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/analytics?type=recent", nil))
	assert.Equal(t, 50, rep.gotLimit)
}

func TestGetAnalytics_InvalidQuery(t *testing.T) {
	for _, q := range []string{
		"type=export",
		"startDate=yesterday",
		"limit=0",
		"limit=1001",
		"startDate=2025-03-08T00:00:00Z&endDate=2025-03-01T00:00:00Z",
	} {
		rep := &fakeReporter{}
		rec := httptest.NewRecorder()
		newAnalyticsHandler(rep).GetAnalytics(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics?"+q, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Contains(t, rec.Body.String(), "Invalid query parameters", q)
		assert.Empty(t, rep.gotKind, q)
	}
}

func TestGetAnalytics_ReportError(t *testing.T) {
	rec := httptest.NewRecorder()
	newAnalyticsHandler(&fakeReporter{err: errors.New("db down")}).
		GetAnalytics(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to retrieve analytics data")
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestGetDashboard(t *testing.T) {
	rep := &fakeReporter{}
	rep.dashboard.Overview.Metrics.WeeklyAPIRequests = 42
	rec := httptest.NewRecorder()
	newAnalyticsHandler(rep).GetDashboard(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp DashboardResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(42), resp.Data.Overview.Metrics.WeeklyAPIRequests)
	assert.Equal(t, analyticsNow.Add(-7*24*time.Hour), resp.Metadata.DateRange.Weekly.Start)
	assert.Empty(t, resp.Warning)
}

func TestGetDashboard_PartialWarns(t *testing.T) {
	rec := httptest.NewRecorder()
	newAnalyticsHandler(&fakeReporter{partial: true}).GetDashboard(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Analytics data unavailable - displaying fallback data")
}

func TestAdminAnalytics_NotConfigured(t *testing.T) {
	h := NewAdminAnalyticsHandler(nil, logging.Discard())

	rec := httptest.NewRecorder()
	h.GetAnalytics(rec, httptest.NewRequest(http.MethodGet, "/admin/analytics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.GetDashboard(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
