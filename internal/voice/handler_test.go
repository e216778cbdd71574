package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synura/agency-api/pkg/logging"
)

type stubCalls struct {
	gotAgent string
	call     *WebCall
	err      error
}

func (s *stubCalls) CreateWebCall(ctx context.Context, agentID string) (*WebCall, error) {
	s.gotAgent = agentID
	if agentID == "" {
		return nil, ErrNoAgent
	}
	return s.call, s.err
}

func serve(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/voice/create-call", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.CreateCall(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

func TestCreateCall_UsesRequestAgent(t *testing.T) {
	calls := &stubCalls{call: &WebCall{AccessToken: "tok", CallID: "call_1"}}
	h := NewHandler(calls, "agent_default", logging.Discard())

	w, body := serve(t, h, `{"agentId":"agent_custom"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "agent_custom", calls.gotAgent)
	assert.Equal(t, "tok", body["access_token"])
	assert.Equal(t, "call_1", body["call_id"])
}

func TestCreateCall_FallsBackToDefaultAgent(t *testing.T) {
	calls := &stubCalls{call: &WebCall{AccessToken: "tok", CallID: "call_1"}}
	h := NewHandler(calls, "agent_default", logging.Discard())

	w, _ := serve(t, h, ``)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "agent_default", calls.gotAgent)
}

func TestCreateCall_Errors(t *testing.T) {
	tests := []struct {
		name       string
		defaultID  string
		err        error
		wantStatus int
		wantError  string
		wantDetail string
	}{
		{name: "no agent", wantStatus: http.StatusBadRequest, wantError: "No agent ID configured"},
		{name: "no key", defaultID: "a", err: ErrNotConfigured, wantStatus: http.StatusInternalServerError, wantError: "Retell API key not configured"},
		{name: "upstream", defaultID: "a", err: &UpstreamError{StatusCode: http.StatusUnauthorized, Body: "bad key"}, wantStatus: http.StatusUnauthorized, wantError: "Failed to create call", wantDetail: "bad key"},
		{name: "transport", defaultID: "a", err: errors.New("dial tcp: refused"), wantStatus: http.StatusInternalServerError, wantError: "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&stubCalls{err: tt.err}, tt.defaultID, logging.Discard())

			w, body := serve(t, h, `{}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, body["error"])
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, body["details"])
			}
		})
	}
}

func TestCreateCall_MalformedBody(t *testing.T) {
	h := NewHandler(&stubCalls{}, "agent_default", logging.Discard())

	w, body := serve(t, h, `{"agentId":`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", body["error"])
}
