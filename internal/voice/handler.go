package voice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/synura/agency-api/pkg/logging"
)

// CallCreator is the part of the Retell client the handler needs.
type CallCreator interface {
	CreateWebCall(ctx context.Context, agentID string) (*WebCall, error)
}

// Handler serves POST /v1/voice/create-call.
type Handler struct {
	calls          CallCreator
	defaultAgentID string
	logger         *logging.Logger
}

// NewHandler falls back to defaultAgentID when the request names none.
func NewHandler(calls CallCreator, defaultAgentID string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		calls:          calls,
		defaultAgentID: strings.TrimSpace(defaultAgentID),
		logger:         logger,
	}
}

type createCallRequest struct {
	AgentID string `json:"agentId"`
}

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// CreateCall handles POST /v1/voice/create-call. An empty body uses the
// configured agent.
func (h *Handler) CreateCall(w http.ResponseWriter, r *http.Request) {
	var req createCallRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Error("create call: malformed body", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		return
	}

	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" {
		agentID = h.defaultAgentID
	}

	call, err := h.calls.CreateWebCall(r.Context(), agentID)
	var upstream *UpstreamError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, call)
	case errors.Is(err, ErrNoAgent):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "No agent ID configured"})
	case errors.Is(err, ErrNotConfigured):
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Retell API key not configured"})
	case errors.As(err, &upstream):
		writeJSON(w, upstreamStatus(upstream.StatusCode), errorBody{Error: "Failed to create call", Details: upstream.Body})
	default:
		h.logger.Error("create call failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}

// upstreamStatus passes Retell error codes through; anything outside the
// 4xx/5xx range becomes 502.
func upstreamStatus(code int) int {
	if code >= 400 && code <= 599 {
		return code
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
