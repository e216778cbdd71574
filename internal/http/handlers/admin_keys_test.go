package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synura/agency-api/internal/apikeys"
	"github.com/synura/agency-api/pkg/logging"
)

type fakeKeyManager struct {
	keys []apikeys.Key
	err  error

	created     []string
	deactivated []string
	deleted     []string
}

func (f *fakeKeyManager) Create(_ context.Context, name, description string) (apikeys.Created, error) {
	if f.err != nil {
		return apikeys.Created{}, f.err
	}
	f.created = append(f.created, name)
	return apikeys.Created{
		KeyID:       "key_0123",
		Key:         "syn_secret",
		Name:        name,
		Description: description,
		Created:     time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeKeyManager) List(context.Context) ([]apikeys.Key, error) { return f.keys, f.err }

func (f *fakeKeyManager) Deactivate(_ context.Context, keyID string) error {
	if f.err != nil {
		return f.err
	}
	f.deactivated = append(f.deactivated, keyID)
	return nil
}

func (f *fakeKeyManager) Delete(_ context.Context, keyID string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, keyID)
	return nil
}

func newKeysHandler(m KeyManager) *AdminKeysHandler {
	return NewAdminKeysHandler(m, nil, logging.Discard())
}

func TestListKeys(t *testing.T) {
	m := &fakeKeyManager{keys: []apikeys.Key{{KeyID: "key_1", Name: "retell", IsActive: true, UsageCount: 4}}}
	rec := httptest.NewRecorder()
	newKeysHandler(m).ListKeys(rec, httptest.NewRequest(http.MethodGet, "/admin/keys", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp KeyListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.Metadata.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "retell", resp.Data[0].Name)
	assert.NotContains(t, rec.Body.String(), "hash")
}

func TestListKeys_EmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	newKeysHandler(&fakeKeyManager{}).ListKeys(rec, httptest.NewRequest(http.MethodGet, "/admin/keys", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestCreateKey(t *testing.T) {
	m := &fakeKeyManager{}
	rec := httptest.NewRecorder()
	body := `{"name":"retell","description":"voice agent"}`
	newKeysHandler(m).CreateKey(rec, httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp KeyCreatedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "API key created successfully", resp.Message)
	assert.Equal(t, "syn_secret", resp.Data.Key)
	assert.Equal(t, "voice agent", resp.Data.Description)
	assert.Contains(t, resp.Warning, "only be shown once")
	assert.Equal(t, []string{"retell"}, m.created)
}

func TestCreateKey_ValidationError(t *testing.T) {
	m := &fakeKeyManager{}
	rec := httptest.NewRecorder()
	body := `{"name":"","description":"` + strings.Repeat("d", 501) + `"}`
	newKeysHandler(m).CreateKey(rec, httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Name is required")
	assert.Contains(t, rec.Body.String(), "Description must be less than 500 characters")
	assert.Empty(t, m.created)
}

func TestCreateKey_Failures(t *testing.T) {
	rec := httptest.NewRecorder()
	newKeysHandler(&fakeKeyManager{}).CreateKey(rec,
		httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(`{"name":"a"} {}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	newKeysHandler(&fakeKeyManager{err: errors.New("db down")}).CreateKey(rec,
		httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(`{"name":"a"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to create API key")
}

func TestRemoveKey(t *testing.T) {
	m := &fakeKeyManager{}
	h := newKeysHandler(m)

	rec := httptest.NewRecorder()
	h.RemoveKey(rec, httptest.NewRequest(http.MethodDelete, "/admin/keys", strings.NewReader(`{"keyId":"key_1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "API key deactivated successfully")
	assert.Equal(t, []string{"key_1"}, m.deactivated)

	rec = httptest.NewRecorder()
	h.RemoveKey(rec, httptest.NewRequest(http.MethodDelete, "/admin/keys?permanent=true", strings.NewReader(`{"keyId":"key_2"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp KeyRemovedResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "API key deleted successfully", resp.Message)
	assert.Equal(t, "deleted", resp.Data.Action)
	assert.Equal(t, "key_2", resp.Data.KeyID)
	assert.Equal(t, []string{"key_2"}, m.deleted)
}

func TestRemoveKey_Errors(t *testing.T) {
	rec := httptest.NewRecorder()
	newKeysHandler(&fakeKeyManager{}).RemoveKey(rec, httptest.NewRequest(http.MethodDelete, "/admin/keys", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Key ID is required")

	rec = httptest.NewRecorder()
	newKeysHandler(&fakeKeyManager{err: apikeys.ErrNotFound}).RemoveKey(rec,
		httptest.NewRequest(http.MethodDelete, "/admin/keys", strings.NewReader(`{"keyId":"nope"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	newKeysHandler(&fakeKeyManager{err: errors.New("db down")}).RemoveKey(rec,
		httptest.NewRequest(http.MethodDelete, "/admin/keys", strings.NewReader(`{"keyId":"key_1"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to process request")
}

func TestAdminKeys_NotConfigured(t *testing.T) {
	h := NewAdminKeysHandler(nil, nil, logging.Discard())

	rec := httptest.NewRecorder()
	h.ListKeys(rec, httptest.NewRequest(http.MethodGet, "/admin/keys", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	h.CreateKey(rec, httptest.NewRequest(http.MethodPost, "/admin/keys", strings.NewReader(`{"name":"a"}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
