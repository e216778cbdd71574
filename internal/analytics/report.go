package analytics

import (
	"context"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/synura/agency-api/internal/apikeys"
	"github.com/synura/agency-api/internal/leadlog"
	"github.com/synura/agency-api/pkg/logging"
)

// ROIEndpoint is the path whose successful requests count as ROI calculations.
const ROIEndpoint = "/v1/roi/estimate"

const (
	topEndpointLimit   = 10
	dashboardRecent    = 10
	dashboardEndpoints = 5
)

// RequestReader is the read side of the request log. *PostgresStore
// satisfies it.
type RequestReader interface {
	Summary(ctx context.Context, start, end time.Time) (Summary, error)
	TopEndpoints(ctx context.Context, start, end time.Time, limit int) ([]EndpointStats, error)
	CountSuccessful(ctx context.Context, endpoint string, start, end time.Time) (int64, error)
	Recent(ctx context.Context, limit int) ([]Request, error)
}

// LeadReader is the read side of the lead capture log.
type LeadReader interface {
	ListRecent(ctx context.Context, source string, limit int) ([]leadlog.Capture, error)
	Stats(ctx context.Context, since *time.Time) ([]leadlog.SourceStats, error)
}

// KeyReader reports API key usage.
type KeyReader interface {
	Stats(ctx context.Context) (apikeys.Stats, error)
}

// Reporter builds the admin analytics reports.
type Reporter struct {
	requests RequestReader
	leads    LeadReader
	keys     KeyReader
	logger   *logging.Logger
	now      func() time.Time
}

// NewReporter wires a Reporter. leads and keys may be nil; their sections
// then report zeros.
func NewReporter(requests RequestReader, leads LeadReader, keys KeyReader, logger *logging.Logger) *Reporter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reporter{requests: requests, leads: leads, keys: keys, logger: logger, now: time.Now}
}

// UsageReport is API traffic over a range.
type UsageReport struct {
	Summary
	TopEndpoints []EndpointStats `json:"topEndpoints"`
}

// LeadReport counts captured leads per source.
type LeadReport struct {
	Total   int64                 `json:"total"`
	Sources []leadlog.SourceStats `json:"sources"`
}

// ROIReport counts ROI estimates served.
type ROIReport struct {
	CalculationsPerformed int64 `json:"calculationsPerformed"`
}

// SummaryReport combines every section for one range.
type SummaryReport struct {
	Usage struct {
		API   UsageReport `json:"api"`
		Leads LeadReport  `json:"leads"`
		ROI   ROIReport   `json:"roi"`
	} `json:"usage"`
	Keys apikeys.Stats `json:"keys"`
}

// RecentActivity is the newest requests and leads.
type RecentActivity struct {
	APIRequests []Request         `json:"apiRequests"`
	Leads       []leadlog.Capture `json:"leads"`
}

// Usage reports request volume, latency and errors in [start, end).
func (r *Reporter) Usage(ctx context.Context, start, end time.Time) (UsageReport, error) {
	sum, err := r.requests.Summary(ctx, start, end)
	if err != nil {
		return UsageReport{}, err
	}
	top, err := r.requests.TopEndpoints(ctx, start, end, topEndpointLimit)
	if err != nil {
		return UsageReport{}, err
	}
	return UsageReport{Summary: sum, TopEndpoints: top}, nil
}

// Leads counts captures since start. The capture log has no upper bound
// filter, so the range always runs to now.
func (r *Reporter) Leads(ctx context.Context, start time.Time) (LeadReport, error) {
	report := LeadReport{Sources: []leadlog.SourceStats{}}
	if r.leads == nil {
		return report, nil
	}
	stats, err := r.leads.Stats(ctx, &start)
	if err != nil {
		return report, err
	}
	for _, st := range stats {
		report.Total += st.Total
		report.Sources = append(report.Sources, st)
	}
	return report, nil
}

// ROI counts successful ROI estimates in [start, end).
func (r *Reporter) ROI(ctx context.Context, start, end time.Time) (ROIReport, error) {
	n, err := r.requests.CountSuccessful(ctx, ROIEndpoint, start, end)
	if err != nil {
		return ROIReport{}, err
	}
	return ROIReport{CalculationsPerformed: n}, nil
}

// Keys reports API key usage.
func (r *Reporter) Keys(ctx context.Context) (apikeys.Stats, error) {
	if r.keys == nil {
		return apikeys.Summarize(nil), nil
	}
	return r.keys.Stats(ctx)
}

// Recent returns up to limit of the newest requests and leads.
func (r *Reporter) Recent(ctx context.Context, limit int) (RecentActivity, error) {
	var act RecentActivity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		reqs, err := r.requests.Recent(gctx, limit)
		act.APIRequests = reqs
		return err
	})
	g.Go(func() error {
		if r.leads == nil {
			return nil
		}
		leads, err := r.leads.ListRecent(gctx, "", limit)
		act.Leads = leads
		return err
	})
	if err := g.Wait(); err != nil {
		return RecentActivity{}, err
	}
	if act.APIRequests == nil {
		act.APIRequests = []Request{}
	}
	if act.Leads == nil {
		act.Leads = []leadlog.Capture{}
	}
	return act, nil
}

// Summary runs every section for [start, end) concurrently.
func (r *Reporter) Summary(ctx context.Context, start, end time.Time) (SummaryReport, error) {
	var rep SummaryReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rep.Usage.API, err = r.Usage(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		rep.Usage.Leads, err = r.Leads(gctx, start)
		return err
	})
	g.Go(func() (err error) {
		rep.Usage.ROI, err = r.ROI(gctx, start, end)
		return err
	})
	g.Go(func() (err error) {
		rep.Keys, err = r.Keys(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return SummaryReport{}, err
	}
	return rep, nil
}

// DashboardMetrics are the headline numbers. Totals cover 30 days, weekly
// values 7 days; growth compares the last week with the three before it.
type DashboardMetrics struct {
	TotalAPIRequests      int64   `json:"totalAPIRequests"`
	WeeklyAPIRequests     int64   `json:"weeklyAPIRequests"`
	APIRequestsGrowth     int     `json:"apiRequestsGrowth"`
	AverageResponseTime   float64 `json:"averageResponseTime"`
	ErrorRate             float64 `json:"errorRate"`
	TotalLeads            int64   `json:"totalLeads"`
	WeeklyLeads           int64   `json:"weeklyLeads"`
	LeadsGrowth           int     `json:"leadsGrowth"`
	TotalROICalculations  int64   `json:"totalROICalculations"`
	WeeklyROICalculations int64   `json:"weeklyROICalculations"`
	ROICalculationsGrowth int     `json:"roiCalculationsGrowth"`
	TotalAPIKeys          int     `json:"totalAPIKeys"`
	ActiveAPIKeys         int     `json:"activeAPIKeys"`
	InactiveAPIKeys       int     `json:"inactiveAPIKeys"`
	TotalAPIKeyUsage      int64   `json:"totalAPIKeyUsage"`
}

// Health grades the API from the weekly numbers.
type Health struct {
	API          string `json:"api"`
	ResponseTime string `json:"responseTime"`
	Usage        string `json:"usage"`
}

// Range is an inclusive-start time window.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Dashboard is the admin landing page.
type Dashboard struct {
	Overview struct {
		Metrics     DashboardMetrics `json:"metrics"`
		Health      Health           `json:"health"`
		LastUpdated time.Time        `json:"lastUpdated"`
	} `json:"overview"`
	Activity struct {
		RecentAPIRequests []Request         `json:"recentAPIRequests"`
		RecentLeads       []leadlog.Capture `json:"recentLeads"`
		TopEndpoints      []EndpointStats   `json:"topEndpoints"`
	} `json:"activity"`
	Keys struct {
		Stats   apikeys.Stats      `json:"stats"`
		TopUsed []apikeys.KeyUsage `json:"topUsed"`
	} `json:"keys"`
}

// DashboardReport is a Dashboard with its ranges. Partial is set when a
// section could not be loaded and shows zeros.
type DashboardReport struct {
	Dashboard Dashboard
	Monthly   Range
	Weekly    Range
	Partial   bool
}

// Dashboard loads every section concurrently. A failing section is logged
// and reported as zeros so the page always renders.
func (r *Reporter) Dashboard(ctx context.Context) DashboardReport {
	now := r.now().UTC()
	monthly := Range{Start: now.Add(-30 * 24 * time.Hour), End: now}
	weekly := Range{Start: now.Add(-7 * 24 * time.Hour), End: now}

	var (
		monthUsage, weekUsage UsageReport
		monthLeads, weekLeads LeadReport
		monthROI, weekROI     ROIReport
		recent                RecentActivity
		keys                  apikeys.Stats
		failed                = make([]bool, 8)
	)
	section := func(i int, name string, fn func() error) func() error {
		return func() error {
			if err := fn(); err != nil {
				r.logger.Warn("dashboard section unavailable", "section", name, "error", err)
				failed[i] = true
			}
			return nil
		}
	}

	var g errgroup.Group
	g.Go(section(0, "monthly_usage", func() (err error) { monthUsage, err = r.Usage(ctx, monthly.Start, monthly.End); return }))
	g.Go(section(1, "weekly_usage", func() (err error) { weekUsage, err = r.Usage(ctx, weekly.Start, weekly.End); return }))
	g.Go(section(2, "monthly_leads", func() (err error) { monthLeads, err = r.Leads(ctx, monthly.Start); return }))
	g.Go(section(3, "weekly_leads", func() (err error) { weekLeads, err = r.Leads(ctx, weekly.Start); return }))
	g.Go(section(4, "monthly_roi", func() (err error) { monthROI, err = r.ROI(ctx, monthly.Start, monthly.End); return }))
	g.Go(section(5, "weekly_roi", func() (err error) { weekROI, err = r.ROI(ctx, weekly.Start, weekly.End); return }))
	g.Go(section(6, "recent", func() (err error) { recent, err = r.Recent(ctx, dashboardRecent); return }))
	g.Go(section(7, "keys", func() (err error) { keys, err = r.Keys(ctx); return }))
	_ = g.Wait()

	rep := DashboardReport{Monthly: monthly, Weekly: weekly}
	for _, f := range failed {
		rep.Partial = rep.Partial || f
	}
	if keys.TopUsed == nil {
		keys = apikeys.Summarize(nil)
	}

	d := &rep.Dashboard
	d.Overview.Metrics = DashboardMetrics{
		TotalAPIRequests:      monthUsage.TotalRequests,
		WeeklyAPIRequests:     weekUsage.TotalRequests,
		APIRequestsGrowth:     Growth(weekUsage.TotalRequests, monthUsage.TotalRequests-weekUsage.TotalRequests),
		AverageResponseTime:   weekUsage.AverageResponseTime,
		ErrorRate:             weekUsage.ErrorRate,
		TotalLeads:            monthLeads.Total,
		WeeklyLeads:           weekLeads.Total,
		LeadsGrowth:           Growth(weekLeads.Total, monthLeads.Total-weekLeads.Total),
		TotalROICalculations:  monthROI.CalculationsPerformed,
		WeeklyROICalculations: weekROI.CalculationsPerformed,
		ROICalculationsGrowth: Growth(weekROI.CalculationsPerformed, monthROI.CalculationsPerformed-weekROI.CalculationsPerformed),
		TotalAPIKeys:          keys.Total,
		ActiveAPIKeys:         keys.Active,
		InactiveAPIKeys:       keys.Inactive,
		TotalAPIKeyUsage:      keys.TotalUsage,
	}
	if failed[1] {
		d.Overview.Health = Health{API: "unknown", ResponseTime: "unknown", Usage: "unknown"}
	} else {
		d.Overview.Health = Grade(d.Overview.Metrics)
	}
	d.Overview.LastUpdated = now

	d.Activity.RecentAPIRequests = nonNil(recent.APIRequests)
	d.Activity.RecentLeads = recent.Leads
	if d.Activity.RecentLeads == nil {
		d.Activity.RecentLeads = []leadlog.Capture{}
	}
	d.Activity.TopEndpoints = []EndpointStats{}
	for i := 0; i < len(weekUsage.TopEndpoints) && i < dashboardEndpoints; i++ {
		d.Activity.TopEndpoints = append(d.Activity.TopEndpoints, weekUsage.TopEndpoints[i])
	}

	d.Keys.Stats = keys
	d.Keys.TopUsed = keys.TopUsed
	return rep
}

// Growth is the percentage change from previous to current, rounded. From
// zero it is 100 when anything happened and 0 otherwise.
func Growth(current, previous int64) int {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return int(math.Round(float64(current-previous) / float64(previous) * 100))
}

// Grade maps error rate and latency to healthy, warning or critical.
func Grade(m DashboardMetrics) Health {
	h := Health{API: "critical", ResponseTime: "critical", Usage: "inactive"}
	switch {
	case m.ErrorRate < 5:
		h.API = "healthy"
	case m.ErrorRate < 15:
		h.API = "warning"
	}
	switch {
	case m.AverageResponseTime < 500:
		h.ResponseTime = "healthy"
	case m.AverageResponseTime < 1000:
		h.ResponseTime = "warning"
	}
	if m.WeeklyAPIRequests > 0 {
		h.Usage = "active"
	}
	return h
}

func nonNil(reqs []Request) []Request {
	if reqs == nil {
		return []Request{}
	}
	return reqs
}
