package crm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synura/agency-api/pkg/logging"
)

type stubCreator struct {
	got Subscriber
	err error
}

func (s *stubCreator) CreateSubscriber(ctx context.Context, sub Subscriber) (*SubscriberRecord, error) {
	s.got = sub
	if s.err != nil {
		return nil, s.err
	}
	return &SubscriberRecord{ID: 1, EmailAddress: sub.Email}, nil
}

func TestUpsertDelivered(t *testing.T) {
	creator := &stubCreator{}
	u := NewUpserter(creator, time.Second, logging.Discard())

	out := u.Upsert(context.Background(), Contact{Email: "jane@example.com", Name: "Jane Doe", CompanySize: "11-50", Source: SourceContactForm})
	assert.True(t, out.Delivered)
	assert.Equal(t, EffectName, out.Name)
	assert.Equal(t, "Jane Doe", creator.got.FirstName)
	assert.Contains(t, creator.got.Tags, "company-11-50")
	assert.Contains(t, creator.got.Tags, "contact-form")
}

func TestUpsertUsesROITags(t *testing.T) {
	creator := &stubCreator{}
	u := NewUpserter(creator, time.Second, logging.Discard())
	u.Upsert(context.Background(), Contact{Email: "a@b.co", Source: SourceROICalculator, CompanySize: "1-10",
		ROI: &ROIDetails{Industry: "technology", CalculatedROI: 400, ComplexityScore: 8}})
	assert.Contains(t, creator.got.Tags, "high-roi-lead")
	assert.Contains(t, creator.got.Tags, "industry-technology")
}

func TestUpsertErrorIsAbsorbed(t *testing.T) {
	u := NewUpserter(&stubCreator{err: errors.New("boom")}, time.Second, logging.Discard())
	out := u.Upsert(context.Background(), Contact{Email: "jane@example.com"})
	assert.False(t, out.Delivered)
	assert.EqualError(t, out.Err, "boom")
}

func TestUpsertNotConfigured(t *testing.T) {
	var u *Upserter
	out := u.Upsert(context.Background(), Contact{Email: "jane@example.com"})
	assert.False(t, out.Delivered)
	assert.ErrorIs(t, out.Err, ErrNotConfigured)

	out = NewUpserter(nil, time.Second, nil).Upsert(context.Background(), Contact{Email: "jane@example.com"})
	assert.ErrorIs(t, out.Err, ErrNotConfigured)
}

func TestUpsertUpstream500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "kit is down", http.StatusInternalServerError)
	}))
	defer srv.Close()
	client, err := New(Config{APIKey: "k", BaseURL: srv.URL, Logger: logging.Discard()})
	require.NoError(t, err)

	out := NewUpserter(client, time.Second, logging.Discard()).Upsert(context.Background(), Contact{Email: "jane@example.com"})
	assert.False(t, out.Delivered)
	var apiErr *APIError
	require.ErrorAs(t, out.Err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestUpsertTimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()
	client, err := New(Config{APIKey: "k", BaseURL: srv.URL, Logger: logging.Discard()})
	require.NoError(t, err)

	out := NewUpserter(client, 50*time.Millisecond, logging.Discard()).Upsert(context.Background(), Contact{Email: "jane@example.com"})
	assert.False(t, out.Delivered)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}
