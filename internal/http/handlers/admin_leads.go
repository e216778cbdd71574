package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/synura/agency-api/internal/leadlog"
	"github.com/synura/agency-api/pkg/logging"
)

// CaptureLog is the read side of the lead capture log.
type CaptureLog interface {
	ListRecent(ctx context.Context, source string, limit int) ([]leadlog.Capture, error)
	Stats(ctx context.Context, since *time.Time) ([]leadlog.SourceStats, error)
}

// AdminLeadsHandler handles admin API endpoints for captured leads.
type AdminLeadsHandler struct {
	store  CaptureLog
	logger *logging.Logger
}

// NewAdminLeadsHandler creates a new admin leads handler. store is nil when
// no database is configured.
func NewAdminLeadsHandler(store CaptureLog, logger *logging.Logger) *AdminLeadsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminLeadsHandler{
		store:  store,
		logger: logger,
	}
}

// LeadsListResponse is the body of GET /admin/leads.
type LeadsListResponse struct {
	Leads []leadlog.Capture `json:"leads"`
	Count int               `json:"count"`
}

// LeadStatsResponse is the body of GET /admin/leads/stats.
type LeadStatsResponse struct {
	Since   *string               `json:"since,omitempty"`
	Sources []leadlog.SourceStats `json:"sources"`
}

// ListLeads returns the most recent captures.
// GET /admin/leads?source=&limit=
func (h *AdminLeadsHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "Lead log not configured"})
		return
	}

	source := strings.TrimSpace(r.URL.Query().Get("source"))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	captures, err := h.store.ListRecent(r.Context(), source, limit)
	if err != nil {
		h.logger.Error("failed to list lead captures", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Internal server error"})
		return
	}
	if captures == nil {
		captures = []leadlog.Capture{}
	}
	writeJSON(w, http.StatusOK, LeadsListResponse{Leads: captures, Count: len(captures)})
}

// GetStats returns per-source capture counts.
// GET /admin/leads/stats?since=RFC3339
func (h *AdminLeadsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "error": "Lead log not configured"})
		return
	}

	var since *time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "since must be an RFC3339 timestamp"})
			return
		}
		since = &t
	}

	stats, err := h.store.Stats(r.Context(), since)
	if err != nil {
		h.logger.Error("failed to load lead stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Internal server error"})
		return
	}
	if stats == nil {
		stats = []leadlog.SourceStats{}
	}
	resp := LeadStatsResponse{Sources: stats}
	if since != nil {
		s := since.UTC().Format(time.RFC3339)
		resp.Since = &s
	}
	writeJSON(w, http.StatusOK, resp)
}
