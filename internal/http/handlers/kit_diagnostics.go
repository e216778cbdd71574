package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/synura/agency-api/internal/crm"
	"github.com/synura/agency-api/internal/sideeffect"
	"github.com/synura/agency-api/pkg/logging"
)

// KitAdmin is the part of the Kit client used by the diagnostics endpoint.
type KitAdmin interface {
	TestConnection(ctx context.Context) error
	InitializeSetup(ctx context.Context) error
}

// ContactUpserter syncs a contact into the CRM.
type ContactUpserter interface {
	Upsert(ctx context.Context, c crm.Contact) sideeffect.Outcome
}

// KitDiagnosticsHandler serves /test/kit.
type KitDiagnosticsHandler struct {
	kit    KitAdmin
	crm    ContactUpserter
	logger *logging.Logger
	now    func() time.Time
}

// NewKitDiagnosticsHandler wires the diagnostics endpoint. kit is nil when
// no API key is configured.
func NewKitDiagnosticsHandler(kit KitAdmin, upserter ContactUpserter, logger *logging.Logger) *KitDiagnosticsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &KitDiagnosticsHandler{kit: kit, crm: upserter, logger: logger, now: time.Now}
}

// testLeadData mirrors the sample ROI lead pushed by the test-lead action.
type testLeadData struct {
	Email           string  `json:"email"`
	Name            string  `json:"name"`
	CompanySize     string  `json:"companySize"`
	Industry        string  `json:"industry"`
	CalculatedROI   float64 `json:"calculatedROI"`
	AnnualSavings   float64 `json:"annualSavings"`
	SetupInvestment float64 `json:"setupInvestment"`
	ComplexityScore int     `json:"complexityScore"`
	LeadSource      string  `json:"leadSource"`
	CalculationID   string  `json:"calculationId"`
}

var sampleROILead = testLeadData{
	Email:           "test@example.com",
	Name:            "Test User",
	CompanySize:     "1-10",
	Industry:        "professional-services",
	CalculatedROI:   350.5,
	AnnualSavings:   25000,
	SetupInvestment: 3000,
	ComplexityScore: 5,
	LeadSource:      crm.SourceROICalculator,
	CalculationID:   "test_calc_123",
}

// TestConnection handles GET /test/kit.
func (h *KitDiagnosticsHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if h.kit == nil {
		h.logger.Warn("kit diagnostics: client not configured")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Kit API connection failed"})
		return
	}
	if err := h.kit.TestConnection(r.Context()); err != nil {
		h.logger.Warn("kit connection test failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Kit API connection failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Kit API connection successful",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// RunAction handles POST /test/kit with {"action": "initialize" | "test-lead"}.
func (h *KitDiagnosticsHandler) RunAction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Action string `json:"action"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		h.logger.Error("kit diagnostics: malformed body", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Kit test failed"})
		return
	}

	switch req.Action {
	case "initialize":
		h.initialize(w, r)
	case "test-lead":
		h.testLead(w, r)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": `Invalid action. Use "initialize" or "test-lead"`,
		})
	}
}

func (h *KitDiagnosticsHandler) initialize(w http.ResponseWriter, r *http.Request) {
	if h.kit == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Kit CRM setup failed"})
		return
	}
	if err := h.kit.InitializeSetup(r.Context()); err != nil {
		h.logger.Error("kit setup failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Kit CRM setup failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Kit CRM setup completed successfully!",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *KitDiagnosticsHandler) testLead(w http.ResponseWriter, r *http.Request) {
	lead := sampleROILead
	out := sideeffect.Failed(crm.EffectName, crm.ErrNotConfigured)
	if h.crm != nil {
		out = h.crm.Upsert(r.Context(), crm.Contact{
			Email:       lead.Email,
			Name:        lead.Name,
			CompanySize: lead.CompanySize,
			Source:      lead.LeadSource,
			ROI: &crm.ROIDetails{
				Industry:        lead.Industry,
				CalculatedROI:   lead.CalculatedROI,
				AnnualSavings:   lead.AnnualSavings,
				SetupInvestment: lead.SetupInvestment,
				ComplexityScore: lead.ComplexityScore,
				CalculationID:   lead.CalculationID,
			},
		})
	}
	if !out.Delivered {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Failed to create test ROI lead"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  "Test ROI lead created successfully!",
		"leadData": lead,
	})
}
