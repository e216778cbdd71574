package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/synura/agency-api/internal/apikeys"
	"github.com/synura/agency-api/internal/leads"
	"github.com/synura/agency-api/pkg/logging"
)

// KeyManager administers API keys. *apikeys.Service satisfies it.
type KeyManager interface {
	Create(ctx context.Context, name, description string) (apikeys.Created, error)
	List(ctx context.Context) ([]apikeys.Key, error)
	Deactivate(ctx context.Context, keyID string) error
	Delete(ctx context.Context, keyID string) error
}

// AdminKeysHandler handles the /admin/keys endpoints.
type AdminKeysHandler struct {
	keys      KeyManager
	validator *leads.Validator
	logger    *logging.Logger
	now       func() time.Time
}

// NewAdminKeysHandler creates a new admin keys handler. keys is nil when no
// database is configured.
func NewAdminKeysHandler(keys KeyManager, validator *leads.Validator, logger *logging.Logger) *AdminKeysHandler {
	if logger == nil {
		logger = logging.Default()
	}
	if validator == nil {
		validator = leads.NewValidator()
	}
	return &AdminKeysHandler{keys: keys, validator: validator, logger: logger, now: time.Now}
}

// KeyListResponse is the body of GET /admin/keys.
type KeyListResponse struct {
	Success  bool          `json:"success"`
	Data     []apikeys.Key `json:"data"`
	Metadata struct {
		Total     int       `json:"total"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"metadata"`
}

// KeyCreatedResponse is the body of POST /admin/keys.
type KeyCreatedResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    apikeys.Created `json:"data"`
	Warning string          `json:"warning"`
}

// KeyRemovedResponse is the body of DELETE /admin/keys.
type KeyRemovedResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		KeyID     string    `json:"keyId"`
		Action    string    `json:"action"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"data"`
}

type createKeyRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type removeKeyRequest struct {
	KeyID string `json:"keyId" validate:"required"`
}

var keyMessages = map[string]string{
	"name.required":   "Name is required",
	"name.max":        "Name must be less than 100 characters",
	"description.max": "Description must be less than 500 characters",
	"keyId.required":  "Key ID is required",
}

type adminError struct {
	Success bool               `json:"success"`
	Error   string             `json:"error"`
	Errors  []leads.FieldError `json:"details,omitempty"`
}

func (h *AdminKeysHandler) unavailable(w http.ResponseWriter) bool {
	if h.keys != nil {
		return false
	}
	writeJSON(w, http.StatusServiceUnavailable, adminError{Error: "API keys not configured"})
	return true
}

// ListKeys returns every key without its secret.
// GET /admin/keys
func (h *AdminKeysHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	keys, err := h.keys.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list api keys", "error", err)
		writeJSON(w, http.StatusInternalServerError, adminError{Error: "Failed to retrieve API keys"})
		return
	}
	if keys == nil {
		keys = []apikeys.Key{}
	}
	resp := KeyListResponse{Success: true, Data: keys}
	resp.Metadata.Total = len(keys)
	resp.Metadata.Timestamp = h.now().UTC()
	writeJSON(w, http.StatusOK, resp)
}

// CreateKey mints a key. The secret is in this response only.
// POST /admin/keys
func (h *AdminKeysHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	raw, err := leads.DecodeObject(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, adminError{Error: "Invalid request body"})
		return
	}
	var req createKeyRequest
	if err := h.validator.ValidateInto(raw, &req, keyMessages); err != nil {
		h.validationFailed(w, err)
		return
	}

	created, err := h.keys.Create(r.Context(), req.Name, req.Description)
	if err != nil {
		h.logger.Error("failed to create api key", "error", err)
		writeJSON(w, http.StatusInternalServerError, adminError{Error: "Failed to create API key"})
		return
	}
	writeJSON(w, http.StatusCreated, KeyCreatedResponse{
		Success: true,
		Message: "API key created successfully",
		Data:    created,
		Warning: "This API key will only be shown once. Please save it securely.",
	})
}

// RemoveKey deactivates a key, or deletes it with ?permanent=true.
// DELETE /admin/keys
func (h *AdminKeysHandler) RemoveKey(w http.ResponseWriter, r *http.Request) {
	if h.unavailable(w) {
		return
	}
	raw, err := leads.DecodeObject(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, adminError{Error: "Invalid request body"})
		return
	}
	var req removeKeyRequest
	if err := h.validator.ValidateInto(raw, &req, keyMessages); err != nil {
		h.validationFailed(w, err)
		return
	}

	permanent := r.URL.Query().Get("permanent") == "true"
	action := "deactivated"
	if permanent {
		action = "deleted"
		err = h.keys.Delete(r.Context(), req.KeyID)
	} else {
		err = h.keys.Deactivate(r.Context(), req.KeyID)
	}
	if errors.Is(err, apikeys.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, adminError{Error: "API key not found"})
		return
	}
	if err != nil {
		h.logger.Error("failed to remove api key", "key_id", req.KeyID, "permanent", permanent, "error", err)
		writeJSON(w, http.StatusInternalServerError, adminError{Error: "Failed to process request"})
		return
	}

	resp := KeyRemovedResponse{Success: true, Message: "API key " + action + " successfully"}
	resp.Data.KeyID = req.KeyID
	resp.Data.Action = action
	resp.Data.Timestamp = h.now().UTC()
	writeJSON(w, http.StatusOK, resp)
}

func (h *AdminKeysHandler) validationFailed(w http.ResponseWriter, err error) {
	if ve, ok := leads.IsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, adminError{Error: "Validation error", Errors: ve.Errors})
		return
	}
	h.logger.Error("api key request validation failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, adminError{Error: "Failed to process request"})
}
