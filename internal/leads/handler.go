package leads

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/synura/agency-api/pkg/logging"
)

const maxBodyBytes = 64 << 10

// submitter is the part of the Pipeline the handler drives.
type submitter interface {
	SubmitContact(ctx context.Context, raw map[string]any, meta RequestMeta) (Result, error)
	SubmitVoiceLead(ctx context.Context, raw map[string]any, meta RequestMeta) (VoiceLead, Result, error)
}

// Handler serves the public lead endpoints.
type Handler struct {
	pipeline submitter
	logger   *logging.Logger
}

// NewHandler creates a new leads handler.
func NewHandler(pipeline *Pipeline, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{pipeline: pipeline, logger: logger}
}

// ContactResponse is the body of a processed contact submission.
type ContactResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	ContactID         string `json:"contactId"`
	KitIntegration    bool   `json:"kitIntegration"`
	EmailNotification bool   `json:"emailNotification"`
}

type errorResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// SubmitContact handles POST /v1/contact.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	raw, err := DecodeObject(w, r)
	if err != nil {
		h.logger.Error("contact form: malformed body", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Failed to submit contact form"})
		return
	}

	res, err := h.pipeline.SubmitContact(r.Context(), raw, MetaFromRequest(r))
	if ve, ok := IsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid form data", Errors: ve.Errors})
		return
	}
	if err != nil {
		h.logger.Error("contact form submission failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Failed to submit contact form"})
		return
	}

	writeJSON(w, http.StatusOK, ContactResponse{
		Success:           true,
		Message:           "Contact form submitted successfully",
		ContactID:         res.LeadID,
		KitIntegration:    res.CRMSynced,
		EmailNotification: res.NotificationSent,
	})
}

// VoiceLeadResponse is the body of a captured voice agent lead.
type VoiceLeadResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	LeadID  string        `json:"leadId"`
	Data    VoiceLeadData `json:"data"`
}

// VoiceLeadData echoes the captured identity.
type VoiceLeadData struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Intent string `json:"intent"`
}

// CaptureVoiceLead handles POST /v1/voice/leads.
func (h *Handler) CaptureVoiceLead(w http.ResponseWriter, r *http.Request) {
	raw, err := DecodeObject(w, r)
	if err != nil {
		h.logger.Error("voice lead: malformed body", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
		return
	}

	lead, res, err := h.pipeline.SubmitVoiceLead(r.Context(), raw, MetaFromRequest(r))
	if ve, ok := IsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation error", Errors: ve.Errors})
		return
	}
	if err != nil {
		h.logger.Error("voice lead capture failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, VoiceLeadResponse{
		Success: true,
		Message: "Lead captured successfully",
		LeadID:  res.LeadID,
		Data: VoiceLeadData{
			Name:   lead.Name,
			Email:  lead.Email,
			Intent: lead.Intent,
		},
	})
}

// DecodeObject reads a JSON object body of at most 64 KiB. Anything else,
// including a JSON array or trailing data, is an error.
func DecodeObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errTrailingData
	}
	return raw, nil
}

// MetaFromRequest extracts the caller address, user agent and referer.
func MetaFromRequest(r *http.Request) RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return RequestMeta{IPAddress: ip, UserAgent: r.UserAgent(), Referer: r.Referer()}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
