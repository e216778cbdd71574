// Package voice creates browser voice-agent sessions with Retell.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/synura/agency-api/pkg/logging"
)

const (
	defaultBaseURL = "https://api.retellai.com"
	maxErrorBody   = 4096
)

var (
	// ErrNoAgent is returned when neither the request nor the config names an agent.
	ErrNoAgent = errors.New("voice: no agent id configured")

	// ErrNotConfigured is returned when the Retell API key is missing.
	ErrNotConfigured = errors.New("voice: retell api key not configured")
)

// UpstreamError is a non-2xx answer from Retell.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("voice: retell returned status %d", e.StatusCode)
}

// Config controls the Retell client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// Client calls the Retell web call API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// WebCall is the session handed to the browser widget.
type WebCall struct {
	AccessToken string `json:"access_token"`
	CallID      string `json:"call_id"`
}

// NewClient builds a client. A missing key is reported per call so the
// endpoint can answer with a specific error.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
}

// CreateWebCall registers a web call for agentID.
func (c *Client) CreateWebCall(ctx context.Context, agentID string) (*WebCall, error) {
	if strings.TrimSpace(agentID) == "" {
		return nil, ErrNoAgent
	}
	if c == nil || c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	raw, err := json.Marshal(map[string]string{"agent_id": agentID})
	if err != nil {
		return nil, fmt.Errorf("voice: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/create-web-call", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("voice: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voice: http error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("retell create-web-call failed", "status", resp.StatusCode, "body", string(body))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var call WebCall
	if err := json.NewDecoder(resp.Body).Decode(&call); err != nil {
		return nil, fmt.Errorf("voice: decode response: %w", err)
	}
	c.logger.Info("retell web call created", "agent_id", agentID, "call_id", call.CallID)
	return &call, nil
}
