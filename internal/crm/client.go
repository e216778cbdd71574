package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/synura/agency-api/pkg/logging"
)

const (
	defaultBaseURL    = "https://api.kit.com/v4"
	defaultSetupPause = 100 * time.Millisecond
	maxErrorBody      = 2048
)

// Config controls how the Kit client behaves.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	// SetupPause spaces out the calls made by InitializeSetup to stay under
	// Kit's rate limits.
	SetupPause time.Duration
}

// Client wraps the Kit (ConvertKit) v4 endpoints used for lead management.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	setupPause time.Duration
}

// Tag is a Kit subscriber tag.
type Tag struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CustomField is a Kit subscriber custom field.
type CustomField struct {
	ID        int64  `json:"id,omitempty"`
	Key       string `json:"key,omitempty"`
	Name      string `json:"name,omitempty"`
	Label     string `json:"label"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Subscriber is the create-or-update payload for a contact.
type Subscriber struct {
	Email     string
	FirstName string
	Tags      []string
	Fields    map[string]any
}

// SubscriberRecord is what Kit returns for a stored subscriber.
type SubscriberRecord struct {
	ID           int64          `json:"id"`
	FirstName    string         `json:"first_name"`
	EmailAddress string         `json:"email_address"`
	State        string         `json:"state"`
	CreatedAt    string         `json:"created_at"`
	Fields       map[string]any `json:"fields"`
}

// New creates a configured Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	pause := cfg.SetupPause
	if pause < 0 {
		pause = 0
	} else if pause == 0 {
		pause = defaultSetupPause
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		setupPause: pause,
	}, nil
}

// TestConnection verifies the API key against the account endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	if _, err := c.invoke(ctx, http.MethodGet, "/account", nil); err != nil {
		return fmt.Errorf("crm: test connection: %w", err)
	}
	return nil
}

// CreateTag creates a tag, falling back to a lookup when it already exists.
func (c *Client) CreateTag(ctx context.Context, name string) (*Tag, error) {
	data, err := c.invoke(ctx, http.MethodPost, "/tags", map[string]string{"name": name})
	if err != nil {
		if IsUnprocessable(err) {
			c.logger.Debug("kit tag may already exist", "tag", name)
			return c.FindTag(ctx, name)
		}
		return nil, fmt.Errorf("crm: create tag %q: %w", name, err)
	}
	var resp struct {
		Tag Tag `json:"tag"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("crm: decode tag: %w", err)
	}
	return &resp.Tag, nil
}

// FindTag returns the tag with the given name, or nil when Kit has none.
func (c *Client) FindTag(ctx context.Context, name string) (*Tag, error) {
	data, err := c.invoke(ctx, http.MethodGet, "/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("crm: list tags: %w", err)
	}
	var resp struct {
		Tags []Tag `json:"tags"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("crm: decode tags: %w", err)
	}
	for i := range resp.Tags {
		if resp.Tags[i].Name == name {
			return &resp.Tags[i], nil
		}
	}
	return nil, nil
}

// CreateCustomField creates a custom field, falling back to a lookup when it
// already exists.
func (c *Client) CreateCustomField(ctx context.Context, name, label string) (*CustomField, error) {
	data, err := c.invoke(ctx, http.MethodPost, "/custom_fields", map[string]string{"name": name, "label": label})
	if err != nil {
		if IsUnprocessable(err) {
			c.logger.Debug("kit custom field may already exist", "field", name)
			return c.FindCustomField(ctx, name)
		}
		return nil, fmt.Errorf("crm: create custom field %q: %w", name, err)
	}
	var resp struct {
		CustomField CustomField `json:"custom_field"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("crm: decode custom field: %w", err)
	}
	return &resp.CustomField, nil
}

// FindCustomField returns the custom field with the given name or key.
func (c *Client) FindCustomField(ctx context.Context, name string) (*CustomField, error) {
	data, err := c.invoke(ctx, http.MethodGet, "/custom_fields", nil)
	if err != nil {
		return nil, fmt.Errorf("crm: list custom fields: %w", err)
	}
	var resp struct {
		CustomFields []CustomField `json:"custom_fields"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("crm: decode custom fields: %w", err)
	}
	for i := range resp.CustomFields {
		if resp.CustomFields[i].Name == name || resp.CustomFields[i].Key == name {
			return &resp.CustomFields[i], nil
		}
	}
	return nil, nil
}

// CreateSubscriber creates or updates a subscriber. Kit upserts on email
// address, so repeated submissions from the same lead update one record.
func (c *Client) CreateSubscriber(ctx context.Context, sub Subscriber) (*SubscriberRecord, error) {
	if strings.TrimSpace(sub.Email) == "" {
		return nil, ErrEmailRequired
	}
	payload := map[string]any{
		"email_address": sub.Email,
		"state":         "active",
	}
	if sub.FirstName != "" {
		payload["first_name"] = sub.FirstName
	}
	if len(sub.Tags) > 0 {
		payload["tags"] = sub.Tags
	}
	if len(sub.Fields) > 0 {
		payload["fields"] = sub.Fields
	}

	data, err := c.invoke(ctx, http.MethodPost, "/subscribers", payload)
	if err != nil {
		return nil, fmt.Errorf("crm: create subscriber: %w", err)
	}
	var resp struct {
		Subscriber SubscriberRecord `json:"subscriber"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("crm: decode subscriber: %w", err)
	}
	return &resp.Subscriber, nil
}

// InitializeSetup checks the connection and then creates the standard tags
// and custom fields. Individual tag or field failures are logged and skipped.
func (c *Client) InitializeSetup(ctx context.Context) error {
	if err := c.TestConnection(ctx); err != nil {
		return err
	}

	c.logger.Info("initializing kit standard tags", "count", len(StandardTags))
	for _, name := range StandardTags {
		if _, err := c.CreateTag(ctx, name); err != nil {
			c.logger.Warn("kit tag setup failed", "tag", name, "error", err)
		}
		if err := c.pause(ctx); err != nil {
			return err
		}
	}

	c.logger.Info("initializing kit custom fields", "count", len(StandardCustomFields))
	for _, field := range StandardCustomFields {
		if _, err := c.CreateCustomField(ctx, field.Name, field.Label); err != nil {
			c.logger.Warn("kit custom field setup failed", "field", field.Name, "error", err)
		}
		if err := c.pause(ctx); err != nil {
			return err
		}
	}

	c.logger.Info("kit setup complete")
	return nil
}

func (c *Client) pause(ctx context.Context) error {
	if c.setupPause <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.setupPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) invoke(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("crm: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("crm: build request: %w", err)
	}
	req.Header.Set("X-Kit-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("crm: http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("crm: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(data)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Body: snippet}
	}
	return data, nil
}
