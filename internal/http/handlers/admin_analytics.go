package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/synura/agency-api/internal/analytics"
	"github.com/synura/agency-api/internal/leads"
	"github.com/synura/agency-api/pkg/logging"
)

// AnalyticsReporter builds the admin reports. *analytics.Reporter satisfies
// it.
type AnalyticsReporter interface {
	Usage(ctx context.Context, start, end time.Time) (analytics.UsageReport, error)
	Leads(ctx context.Context, start time.Time) (analytics.LeadReport, error)
	ROI(ctx context.Context, start, end time.Time) (analytics.ROIReport, error)
	Recent(ctx context.Context, limit int) (analytics.RecentActivity, error)
	Summary(ctx context.Context, start, end time.Time) (analytics.SummaryReport, error)
	Dashboard(ctx context.Context) analytics.DashboardReport
}

const (
	defaultAnalyticsLimit = 50
	maxAnalyticsLimit     = 1000
	defaultAnalyticsRange = 30 * 24 * time.Hour
)

// AdminAnalyticsHandler handles /admin/analytics and /admin/dashboard.
type AdminAnalyticsHandler struct {
	reports AnalyticsReporter
	logger  *logging.Logger
	now     func() time.Time
}

// NewAdminAnalyticsHandler creates a new analytics handler. reports is nil
// when no database is configured.
func NewAdminAnalyticsHandler(reports AnalyticsReporter, logger *logging.Logger) *AdminAnalyticsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminAnalyticsHandler{reports: reports, logger: logger, now: time.Now}
}

// AnalyticsResponse is the body of GET /admin/analytics.
type AnalyticsResponse struct {
	Success   bool            `json:"success"`
	Type      string          `json:"type"`
	DateRange analytics.Range `json:"dateRange"`
	Timestamp time.Time       `json:"timestamp"`
	Data      any             `json:"data"`
}

// DashboardResponse is the body of GET /admin/dashboard.
type DashboardResponse struct {
	Success  bool                `json:"success"`
	Data     analytics.Dashboard `json:"data"`
	Metadata struct {
		DateRange struct {
			Monthly analytics.Range `json:"monthly"`
			Weekly  analytics.Range `json:"weekly"`
		} `json:"dateRange"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"metadata"`
	Warning string `json:"warning,omitempty"`
}

type analyticsQuery struct {
	kind  string
	rng   analytics.Range
	limit int
}

// parseAnalyticsQuery reads type, startDate, endDate and limit. Dates are
// RFC3339; the range defaults to the last 30 days.
func (h *AdminAnalyticsHandler) parseAnalyticsQuery(r *http.Request) (analyticsQuery, []leads.FieldError) {
	q := r.URL.Query()
	now := h.now().UTC()
	aq := analyticsQuery{
		kind:  q.Get("type"),
		rng:   analytics.Range{Start: now.Add(-defaultAnalyticsRange), End: now},
		limit: defaultAnalyticsLimit,
	}
	var errs []leads.FieldError

	switch aq.kind {
	case "":
		aq.kind = "summary"
	case "summary", "usage", "leads", "roi", "recent":
	default:
		errs = append(errs, leads.FieldError{Field: "type", Message: "Invalid type"})
	}
	if raw := q.Get("startDate"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = append(errs, leads.FieldError{Field: "startDate", Message: "Invalid datetime"})
		} else {
			aq.rng.Start = t.UTC()
		}
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			errs = append(errs, leads.FieldError{Field: "endDate", Message: "Invalid datetime"})
		} else {
			aq.rng.End = t.UTC()
		}
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAnalyticsLimit {
			errs = append(errs, leads.FieldError{Field: "limit", Message: "Must be between 1 and 1000"})
		} else {
			aq.limit = n
		}
	}
	if len(errs) == 0 && !aq.rng.Start.Before(aq.rng.End) {
		errs = append(errs, leads.FieldError{Field: "startDate", Message: "Must be before endDate"})
	}
	return aq, errs
}

// GetAnalytics returns one report over a date range.
// GET /admin/analytics?type=summary|usage|leads|roi|recent&startDate=&endDate=&limit=
func (h *AdminAnalyticsHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeJSON(w, http.StatusServiceUnavailable, adminError{Error: "Analytics not configured"})
		return
	}
	aq, errs := h.parseAnalyticsQuery(r)
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, adminError{Error: "Invalid query parameters", Errors: errs})
		return
	}

	var (
		data any
		err  error
	)
	ctx := r.Context()
	switch aq.kind {
	case "usage":
		data, err = h.reports.Usage(ctx, aq.rng.Start, aq.rng.End)
	case "leads":
		data, err = h.reports.Leads(ctx, aq.rng.Start)
	case "roi":
		data, err = h.reports.ROI(ctx, aq.rng.Start, aq.rng.End)
	case "recent":
		data, err = h.reports.Recent(ctx, aq.limit)
	default:
		data, err = h.reports.Summary(ctx, aq.rng.Start, aq.rng.End)
	}
	if err != nil {
		h.logger.Error("failed to build analytics report", "type", aq.kind, "error", err)
		writeJSON(w, http.StatusInternalServerError, adminError{Error: "Failed to retrieve analytics data"})
		return
	}

	writeJSON(w, http.StatusOK, AnalyticsResponse{
		Success:   true,
		Type:      aq.kind,
		DateRange: aq.rng,
		Timestamp: h.now().UTC(),
		Data:      data,
	})
}

// GetDashboard returns the admin dashboard. Sections that fail to load are
// zeroed and flagged with a warning.
// GET /admin/dashboard
func (h *AdminAnalyticsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	if h.reports == nil {
		writeJSON(w, http.StatusServiceUnavailable, adminError{Error: "Analytics not configured"})
		return
	}
	rep := h.reports.Dashboard(r.Context())

	resp := DashboardResponse{Success: true, Data: rep.Dashboard}
	resp.Metadata.DateRange.Monthly = rep.Monthly
	resp.Metadata.DateRange.Weekly = rep.Weekly
	resp.Metadata.Timestamp = h.now().UTC()
	if rep.Partial {
		resp.Warning = "Analytics data unavailable - displaying fallback data"
	}
	writeJSON(w, http.StatusOK, resp)
}
