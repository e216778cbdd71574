package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synura/agency-api/pkg/logging"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(Config{
		APIKey:     "kit_test",
		BaseURL:    srv.URL + "/",
		Logger:     logging.Discard(),
		SetupPause: -1,
	})
	require.NoError(t, err)
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	client, err := New(Config{APIKey: "  "})
	assert.Nil(t, client)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestTestConnectionSendsAPIKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/account", r.URL.Path)
		assert.Equal(t, "kit_test", r.Header.Get("X-Kit-Api-Key"))
		_, _ = w.Write([]byte(`{"account":{"name":"Synura"}}`))
	})
	require.NoError(t, client.TestConnection(context.Background()))
}

func TestTestConnectionReportsStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
	err := client.TestConnection(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestCreateTagFallsBackToLookupOn422(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"errors":["Name has already been taken"]}`))
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"tags":[{"id":1,"name":"other"},{"id":7,"name":"contact-form"}]}`))
		}
	})
	tag, err := client.CreateTag(context.Background(), "contact-form")
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, int64(7), tag.ID)
}

func TestFindCustomFieldMissingReturnsNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"custom_fields":[{"id":3,"key":"lead_source","label":"Lead Source"}]}`))
	})
	field, err := client.FindCustomField(context.Background(), "lead_source")
	require.NoError(t, err)
	require.NotNil(t, field)
	assert.Equal(t, int64(3), field.ID)

	field, err = client.FindCustomField(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, field)
}

func TestCreateSubscriberPayload(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscribers", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"subscriber":{"id":42,"email_address":"jane@example.com","state":"active"}}`))
	})

	rec, err := client.CreateSubscriber(context.Background(), Subscriber{
		Email:     "jane@example.com",
		FirstName: "Jane",
		Tags:      []string{"contact-form"},
		Fields:    map[string]any{"lead_source": "contact-form"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.ID)
	assert.Equal(t, "jane@example.com", got["email_address"])
	assert.Equal(t, "active", got["state"])
	assert.Equal(t, "Jane", got["first_name"])
	assert.Equal(t, []any{"contact-form"}, got["tags"])
}

func TestCreateSubscriberRequiresEmail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected")
	})
	_, err := client.CreateSubscriber(context.Background(), Subscriber{})
	assert.ErrorIs(t, err, ErrEmailRequired)
}

func TestInitializeSetupCreatesEverything(t *testing.T) {
	var mu sync.Mutex
	counts := map[string]int{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		counts[r.Method+" "+r.URL.Path]++
		mu.Unlock()
		switch r.URL.Path {
		case "/account":
			_, _ = w.Write([]byte(`{}`))
		case "/tags":
			_, _ = w.Write([]byte(`{"tag":{"id":1,"name":"x"}}`))
		case "/custom_fields":
			_, _ = w.Write([]byte(`{"custom_field":{"id":1,"label":"x"}}`))
		}
	})

	require.NoError(t, client.InitializeSetup(context.Background()))
	assert.Equal(t, 1, counts["GET /account"])
	assert.Equal(t, len(StandardTags), counts["POST /tags"])
	assert.Equal(t, len(StandardCustomFields), counts["POST /custom_fields"])
}

func TestInitializeSetupStopsWhenConnectionFails(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})
	require.Error(t, client.InitializeSetup(context.Background()))
	assert.Equal(t, 1, calls)
}
