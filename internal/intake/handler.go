package intake

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/synura/agency-api/internal/leads"
	"github.com/synura/agency-api/pkg/logging"
)

type booker interface {
	BookMeeting(ctx context.Context, raw map[string]any, meta leads.RequestMeta) (MeetingRequest, MeetingResult, error)
	SubmitFeedback(ctx context.Context, raw map[string]any, meta leads.RequestMeta) (FeedbackRequest, FeedbackResult, error)
}

// Handler serves the voice agent's meeting and feedback endpoints.
type Handler struct {
	service booker
	logger  *logging.Logger
}

// NewHandler creates a new intake handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type errorResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Errors  []leads.FieldError `json:"errors,omitempty"`
}

// MeetingResponse is the body of a booked meeting.
type MeetingResponse struct {
	Success           bool        `json:"success"`
	Message           string      `json:"message"`
	MeetingID         string      `json:"meetingId"`
	Data              MeetingData `json:"data"`
	KitIntegration    bool        `json:"kitIntegration"`
	TeamNotification  bool        `json:"teamNotification"`
	ConfirmationEmail bool        `json:"confirmationEmail"`
}

// MeetingData summarises the booking for the caller.
type MeetingData struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	MeetingType string `json:"meetingType"`
	Duration    string `json:"duration"`
	Status      string `json:"status"`
	NextSteps   string `json:"nextSteps"`
}

const meetingFailed = "Failed to book meeting. Please try again or contact us directly."

// BookMeeting handles POST /v1/voice/meetings.
func (h *Handler) BookMeeting(w http.ResponseWriter, r *http.Request) {
	raw, err := leads.DecodeObject(w, r)
	if err != nil {
		h.logger.Error("meeting booking: malformed body", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: meetingFailed})
		return
	}

	req, res, err := h.service.BookMeeting(r.Context(), raw, leads.MetaFromRequest(r))
	if ve, ok := leads.IsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation error", Errors: ve.Errors})
		return
	}
	if err != nil {
		h.logger.Error("meeting booking failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: meetingFailed})
		return
	}

	writeJSON(w, http.StatusCreated, MeetingResponse{
		Success:   true,
		Message:   "Meeting booked successfully",
		MeetingID: res.MeetingID,
		Data: MeetingData{
			Name:        req.Name,
			Email:       req.Email,
			MeetingType: req.MeetingType,
			Duration:    req.Duration + " minutes",
			Status:      "pending_confirmation",
			NextSteps:   "You will receive a calendar invitation shortly.",
		},
		KitIntegration:    res.CRMSynced,
		TeamNotification:  res.TeamNotified,
		ConfirmationEmail: res.ConfirmationSent,
	})
}

// FeedbackResponse is the body of accepted feedback.
type FeedbackResponse struct {
	Success              bool         `json:"success"`
	Message              string       `json:"message"`
	FeedbackID           string       `json:"feedbackId"`
	Data                 FeedbackData `json:"data"`
	TeamNotification     bool         `json:"teamNotification"`
	AcknowledgementEmail bool         `json:"acknowledgementEmail"`
}

// FeedbackData summarises how the feedback was filed.
type FeedbackData struct {
	Type             string `json:"type"`
	Category         string `json:"category"`
	Priority         string `json:"priority"`
	Status           string `json:"status"`
	ExpectedResponse string `json:"expectedResponse"`
}

const feedbackFailed = "Failed to process feedback. Please try again."

// SubmitFeedback handles POST /v1/voice/feedback.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	raw, err := leads.DecodeObject(w, r)
	if err != nil {
		h.logger.Error("feedback: malformed body", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: feedbackFailed})
		return
	}

	req, res, err := h.service.SubmitFeedback(r.Context(), raw, leads.MetaFromRequest(r))
	if ve, ok := leads.IsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation error", Errors: ve.Errors})
		return
	}
	if err != nil {
		h.logger.Error("feedback submission failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: feedbackFailed})
		return
	}

	writeJSON(w, http.StatusCreated, FeedbackResponse{
		Success:    true,
		Message:    "Feedback received successfully",
		FeedbackID: res.FeedbackID,
		Data: FeedbackData{
			Type:             req.Type,
			Category:         req.Category,
			Priority:         req.Priority,
			Status:           "received",
			ExpectedResponse: res.Routing.ExpectedResponse,
		},
		TeamNotification:     res.TeamNotified,
		AcknowledgementEmail: res.AcknowledgementSent,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
