package roi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/synura/agency-api/internal/crm"
	"github.com/synura/agency-api/internal/leads"
	"github.com/synura/agency-api/internal/notify"
	"github.com/synura/agency-api/pkg/logging"
)

// Request is the calculator body. Pointer fields distinguish an absent
// value, which takes the default, from an explicit zero.
type Request struct {
	CompanySize       string   `json:"companySize" validate:"required,oneof=1-10 11-50 51-200 201-1000 1000+"`
	Industry          string   `json:"industry" validate:"required,oneof=professional-services healthcare ecommerce manufacturing finance technology education other"`
	EmployeeCount     *float64 `json:"employeeCount" validate:"required,min=1,max=10000"`
	AverageHourlyRate *float64 `json:"averageHourlyRate" validate:"required,min=10,max=200"`
	ManualTaskHours   *float64 `json:"manualTaskHours" validate:"required,min=1,max=168"`
	ErrorRate         *float64 `json:"errorRate" validate:"required,min=0,max=100"`
	AutomationAreas   []string `json:"automationAreas" validate:"required,min=1,dive,oneof=customer-service lead-management data-entry reporting scheduling billing inventory hr-processes marketing accounting"`
	PrimaryGoal       string   `json:"primaryGoal" validate:"required,oneof=cost-reduction efficiency accuracy scalability compliance"`
	Timeframe         string   `json:"timeframe" validate:"required,oneof=immediate 3-months 6-months 12-months"`
	Email             string   `json:"email" validate:"omitempty,email"`
	Name              string   `json:"name" validate:"omitempty,max=100"`
}

func (r *Request) applyDefaults() {
	if r.AverageHourlyRate == nil {
		r.AverageHourlyRate = float64Ptr(50)
	}
	if r.ErrorRate == nil {
		r.ErrorRate = float64Ptr(5)
	}
	if r.Timeframe == "" {
		r.Timeframe = "6-months"
	}
}

func (r *Request) input() Input {
	return Input{
		CompanySize:       r.CompanySize,
		Industry:          r.Industry,
		EmployeeCount:     *r.EmployeeCount,
		AverageHourlyRate: *r.AverageHourlyRate,
		ManualTaskHours:   *r.ManualTaskHours,
		ErrorRate:         *r.ErrorRate,
		AutomationAreas:   r.AutomationAreas,
		PrimaryGoal:       r.PrimaryGoal,
		Timeframe:         r.Timeframe,
	}
}

func float64Ptr(v float64) *float64 { return &v }

// Response is the calculator answer.
type Response struct {
	Success         bool             `json:"success"`
	CalculationID   string           `json:"calculationId"`
	Estimates       Estimates        `json:"estimates"`
	Recommendations []Recommendation `json:"recommendations"`
	NextSteps       []string         `json:"nextSteps"`
	FollowUp        *FollowUp        `json:"followUp,omitempty"`
}

// FollowUp reports the best-effort CRM and team notification for a
// calculator run that left an email address.
type FollowUp struct {
	CRMSynced        bool `json:"crmSynced"`
	NotificationSent bool `json:"notificationSent"`
}

// LeadDispatcher runs the lead side effects for an already valid record.
type LeadDispatcher interface {
	Dispatch(ctx context.Context, rec leads.Record) leads.Result
}

// Handler serves POST /v1/roi/estimate.
type Handler struct {
	validator *leads.Validator
	leads     LeadDispatcher
	logger    *logging.Logger
	now       func() time.Time
}

// NewHandler wires the calculator. dispatcher may be nil, in which case no
// follow-up is attempted.
func NewHandler(validator *leads.Validator, dispatcher LeadDispatcher, logger *logging.Logger) *Handler {
	if validator == nil {
		validator = leads.NewValidator()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{validator: validator, leads: dispatcher, logger: logger, now: time.Now}
}

type errorResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Errors  []leads.FieldError `json:"errors,omitempty"`
}

// Estimate handles POST /v1/roi/estimate.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	if err := dec.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Message: "Validation error",
				Errors:  []leads.FieldError{{Field: typeErr.Field, Message: "Expected " + typeErr.Type.String() + ", received " + typeErr.Value}},
			})
			return
		}
		h.logger.Error("roi estimate: malformed body", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Failed to calculate ROI estimate"})
		return
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		h.logger.Error("roi estimate: trailing data after body")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Failed to calculate ROI estimate"})
		return
	}

	req.applyDefaults()
	if err := h.validator.Check(req); err != nil {
		if ve, ok := leads.IsValidation(err); ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation error", Errors: ve.Errors})
			return
		}
		h.logger.Error("roi estimate: validation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Failed to calculate ROI estimate"})
		return
	}

	now := h.now()
	in := req.input()
	est := Estimate(in, now)
	resp := Response{
		Success:         true,
		CalculationID:   leads.NewID("roi", now, 9),
		Estimates:       est,
		Recommendations: Recommendations(in, est),
		NextSteps:       NextSteps(est),
	}

	h.logger.Info("roi calculation performed",
		"calculation_id", resp.CalculationID,
		"industry", in.Industry,
		"company_size", in.CompanySize,
		"roi_percentage", est.ROI.Percentage,
	)

	if req.Email != "" && h.leads != nil {
		res := h.leads.Dispatch(r.Context(), followUpRecord(req, in, est, resp.CalculationID, now))
		resp.FollowUp = &FollowUp{CRMSynced: res.CRMSynced, NotificationSent: res.NotificationSent}
	}

	writeJSON(w, http.StatusOK, resp)
}

func followUpRecord(req Request, in Input, est Estimates, calculationID string, now time.Time) leads.Record {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = req.Email
	}
	message := fmt.Sprintf(
		"ROI estimate %s: %.1f%% ROI, $%.0f annual benefit, $%.0f first-year investment. Goal: %s. Areas: %s. Timeframe: %s.",
		calculationID,
		est.ROI.Percentage,
		est.AnnualBenefit,
		est.Investment.FirstYearTotal,
		in.PrimaryGoal,
		strings.Join(in.AutomationAreas, ", "),
		in.Timeframe,
	)
	return leads.Record{
		ID:          calculationID,
		CreatedAt:   now.UTC(),
		Source:      crm.SourceROICalculator,
		Channel:     notify.ChannelROICalculator,
		Intent:      "consultation",
		Status:      "new",
		Name:        name,
		Email:       req.Email,
		Company:     in.CompanySize + " employees",
		CompanySize: in.CompanySize,
		Message:     message,
		ROI: &crm.ROIDetails{
			Industry:        in.Industry,
			CalculatedROI:   est.ROI.Percentage,
			AnnualSavings:   est.AnnualBenefit,
			SetupInvestment: est.Investment.Setup,
			ComplexityScore: ComplexityScore(est.Complexity),
			CalculationID:   calculationID,
			ManualHoursWeek: in.ManualTaskHours,
			AutomationAreas: in.AutomationAreas,
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
