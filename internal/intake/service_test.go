package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synura/agency-api/internal/crm"
	"github.com/synura/agency-api/internal/leadlog"
	"github.com/synura/agency-api/internal/leads"
	"github.com/synura/agency-api/internal/notify"
	"github.com/synura/agency-api/internal/sideeffect"
	"github.com/synura/agency-api/pkg/logging"
)

type stubSyncer struct {
	mu       sync.Mutex
	contacts []crm.Contact
	fail     error
}

func (s *stubSyncer) Upsert(ctx context.Context, c crm.Contact) sideeffect.Outcome {
	s.mu.Lock()
	s.contacts = append(s.contacts, c)
	s.mu.Unlock()
	if s.fail != nil {
		return sideeffect.Failed(crm.EffectName, s.fail)
	}
	return sideeffect.Outcome{Name: crm.EffectName, Delivered: true}
}

type stubMailer struct {
	mu     sync.Mutex
	sent   map[string]notify.EmailMessage
	failOn map[string]error
	panics bool
}

func newStubMailer() *stubMailer {
	return &stubMailer{sent: map[string]notify.EmailMessage{}, failOn: map[string]error{}}
}

func (m *stubMailer) Deliver(ctx context.Context, effect string, msg notify.EmailMessage) sideeffect.Outcome {
	if m.panics {
		panic("mailer exploded")
	}
	m.mu.Lock()
	m.sent[effect] = msg
	m.mu.Unlock()
	if err := m.failOn[effect]; err != nil {
		return sideeffect.Failed(effect, err)
	}
	return sideeffect.Outcome{Name: effect, Delivered: true}
}

type stubCaptures struct {
	mu       sync.Mutex
	captures []leadlog.Capture
}

func (s *stubCaptures) Record(ctx context.Context, c leadlog.Capture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.captures = append(s.captures, c)
	return nil
}

type countingMetrics struct {
	mu          sync.Mutex
	submissions map[string]int
	effects     map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{submissions: map[string]int{}, effects: map[string]int{}}
}

func (m *countingMetrics) ObserveSubmission(source, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submissions[source+"/"+status]++
}

func (m *countingMetrics) ObserveSideEffect(effect string, delivered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if delivered {
		m.effects[effect+"/true"]++
		return
	}
	m.effects[effect+"/false"]++
}

func (m *countingMetrics) ObservePipelineLatency(string, float64) {}

var fixedNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestService(syncer *stubSyncer, mailer *stubMailer) *Service {
	cfg := Config{
		Logger: logging.Discard(),
		Now:    func() time.Time { return fixedNow },
	}
	if syncer != nil {
		cfg.CRM = syncer
	}
	if mailer != nil {
		cfg.Mailer = mailer
	}
	return NewService(cfg)
}

func TestBookMeeting_Defaults(t *testing.T) {
	syncer := &stubSyncer{}
	mailer := newStubMailer()
	captures := &stubCaptures{}
	metrics := newCountingMetrics()
	svc := NewService(Config{
		CRM:      syncer,
		Mailer:   mailer,
		Captures: captures,
		Metrics:  metrics,
		Logger:   logging.Discard(),
		Now:      func() time.Time { return fixedNow },
	})

	req, res, err := svc.BookMeeting(context.Background(), map[string]any{
		"name":  "Jane Doe",
		"email": "jane@acme.com",
	}, leads.RequestMeta{IPAddress: "203.0.113.7"})
	require.NoError(t, err)

	assert.Equal(t, "UTC", req.Timezone)
	assert.Equal(t, "consultation", req.MeetingType)
	assert.Equal(t, "30", req.Duration)
	assert.Equal(t, "medium", req.Urgency)
	assert.Equal(t, "website", req.Source)

	assert.Regexp(t, `^meeting_1718020800000_[a-z0-9]{9}$`, res.MeetingID)
	assert.True(t, res.CRMSynced)
	assert.True(t, res.TeamNotified)
	assert.True(t, res.ConfirmationSent)

	require.Len(t, syncer.contacts, 1)
	assert.Equal(t, crm.SourceMeeting, syncer.contacts[0].Source)
	assert.Equal(t, "jane@acme.com", mailer.sent[notify.EffectConfirmation].To)
	assert.Empty(t, mailer.sent[notify.EffectName].To)

	require.Len(t, captures.captures, 1)
	assert.Equal(t, res.MeetingID, captures.captures[0].LeadID)
	assert.Equal(t, crm.SourceMeeting, captures.captures[0].Source)
	assert.Equal(t, "203.0.113.7", captures.captures[0].IPAddress)

	assert.Equal(t, 1, metrics.submissions["meeting-booking/accepted"])
	assert.Equal(t, 1, metrics.effects["confirmation/true"])
}

func TestBookMeeting_ValidationErrors(t *testing.T) {
	mailer := newStubMailer()
	svc := newTestService(&stubSyncer{}, mailer)

	_, _, err := svc.BookMeeting(context.Background(), map[string]any{
		"email":       "nope",
		"meetingType": "lunch",
		"duration":    30.0,
	}, leads.RequestMeta{})

	ve, ok := leads.IsValidation(err)
	require.True(t, ok)
	fields := map[string]string{}
	for _, fe := range ve.Errors {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "Name is required", fields["name"])
	assert.Equal(t, "Invalid email address", fields["email"])
	assert.Equal(t, "Invalid meeting type", fields["meetingType"])
	assert.Equal(t, "Expected string, received number", fields["duration"])
	assert.Empty(t, mailer.sent)
}

func TestBookMeeting_SideEffectFailuresAreReported(t *testing.T) {
	mailer := newStubMailer()
	mailer.failOn[notify.EffectConfirmation] = errors.New("bounced")
	svc := newTestService(&stubSyncer{fail: errors.New("kit down")}, mailer)

	_, res, err := svc.BookMeeting(context.Background(), map[string]any{
		"name":  "Jane Doe",
		"email": "jane@acme.com",
	}, leads.RequestMeta{})
	require.NoError(t, err)
	assert.False(t, res.CRMSynced)
	assert.True(t, res.TeamNotified)
	assert.False(t, res.ConfirmationSent)
}

func TestBookMeeting_Unconfigured(t *testing.T) {
	svc := newTestService(nil, nil)

	_, res, err := svc.BookMeeting(context.Background(), map[string]any{
		"name":  "Jane Doe",
		"email": "jane@acme.com",
	}, leads.RequestMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.MeetingID)
	assert.False(t, res.CRMSynced)
	assert.False(t, res.TeamNotified)
	assert.False(t, res.ConfirmationSent)
}

func TestBookMeeting_MailerPanicIsContained(t *testing.T) {
	mailer := newStubMailer()
	mailer.panics = true
	metrics := newCountingMetrics()
	svc := NewService(Config{CRM: &stubSyncer{}, Mailer: mailer, Metrics: metrics, Logger: logging.Discard()})

	_, res, err := svc.BookMeeting(context.Background(), map[string]any{
		"name":  "Jane Doe",
		"email": "jane@acme.com",
	}, leads.RequestMeta{})
	require.NoError(t, err)
	assert.True(t, res.CRMSynced)
	assert.False(t, res.TeamNotified)
	assert.False(t, res.ConfirmationSent)
	assert.Equal(t, 1, metrics.submissions["meeting-booking/accepted"])
}

func TestRoute(t *testing.T) {
	low := 2.0
	high := 5.0
	cases := []struct {
		name       string
		req        FeedbackRequest
		team       string
		escalation string
		due        time.Duration
		expected   string
	}{
		{"website default", FeedbackRequest{Category: "website", Type: "general", Priority: "medium"}, "development", "standard", 72 * time.Hour, "Within 3 business days"},
		{"complaint", FeedbackRequest{Category: "pricing", Type: "complaint", Priority: "low"}, "sales", "immediate", 7 * 24 * time.Hour, "Within 1 week"},
		{"urgent", FeedbackRequest{Category: "support", Type: "bug", Priority: "urgent"}, "support", "immediate", 2 * time.Hour, "Within 2 hours"},
		{"high priority", FeedbackRequest{Category: "service", Type: "feature", Priority: "high"}, "customer-success", "priority", 24 * time.Hour, "Within 24 hours"},
		{"low rating", FeedbackRequest{Category: "retell_agent", Type: "general", Priority: "medium", Rating: &low}, "ai-team", "priority", 72 * time.Hour, "Within 3 business days"},
		{"good rating", FeedbackRequest{Category: "consultation", Type: "praise", Priority: "medium", Rating: &high}, "sales", "standard", 72 * time.Hour, "Within 3 business days"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Route(tc.req, fixedNow)
			assert.Equal(t, tc.team, r.AssignedTeam)
			assert.Equal(t, tc.escalation, r.Escalation)
			assert.Equal(t, fixedNow.Add(tc.due), r.DueDate)
			assert.Equal(t, tc.expected, r.ExpectedResponse)
		})
	}
}

func TestSubmitFeedback_AcknowledgesWhenContactBack(t *testing.T) {
	mailer := newStubMailer()
	captures := &stubCaptures{}
	svc := NewService(Config{
		Mailer:   mailer,
		Captures: captures,
		Logger:   logging.Discard(),
		Now:      func() time.Time { return fixedNow },
	})

	req, res, err := svc.SubmitFeedback(context.Background(), map[string]any{
		"email":   "sam@example.com",
		"subject": "Great demo",
		"message": "Loved it",
		"rating":  5.0,
	}, leads.RequestMeta{Referer: "https://synura.ai/pricing"})
	require.NoError(t, err)

	assert.True(t, req.ContactBack)
	assert.Equal(t, "general", req.Type)
	assert.Equal(t, "website", req.Category)
	assert.Equal(t, "medium", req.Priority)
	require.NotNil(t, req.Rating)
	assert.Equal(t, 5.0, *req.Rating)

	assert.Regexp(t, `^feedback_1718020800000_[a-z0-9]{9}$`, res.FeedbackID)
	assert.Equal(t, "development", res.Routing.AssignedTeam)
	assert.True(t, res.TeamNotified)
	assert.True(t, res.AcknowledgementSent)

	assert.Contains(t, mailer.sent[notify.EffectName].Body, "Page: https://synura.ai/pricing")
	assert.Equal(t, "sam@example.com", mailer.sent[notify.EffectAcknowledgement].To)

	require.Len(t, captures.captures, 1)
	assert.Equal(t, SourceFeedback, captures.captures[0].Source)
}

func TestSubmitFeedback_NoAcknowledgement(t *testing.T) {
	cases := map[string]map[string]any{
		"no email":  {"subject": "s", "message": "m"},
		"opted out": {"subject": "s", "message": "m", "email": "sam@example.com", "contactBack": false},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			mailer := newStubMailer()
			svc := newTestService(nil, mailer)

			_, res, err := svc.SubmitFeedback(context.Background(), raw, leads.RequestMeta{})
			require.NoError(t, err)
			assert.True(t, res.TeamNotified)
			assert.False(t, res.AcknowledgementSent)
			_, sent := mailer.sent[notify.EffectAcknowledgement]
			assert.False(t, sent)
		})
	}
}

func TestSubmitFeedback_ValidationErrors(t *testing.T) {
	svc := newTestService(nil, newStubMailer())

	_, _, err := svc.SubmitFeedback(context.Background(), map[string]any{
		"type":     "rant",
		"rating":   7.0,
		"priority": "critical",
		"email":    "not-an-email",
	}, leads.RequestMeta{})

	ve, ok := leads.IsValidation(err)
	require.True(t, ok)
	fields := map[string]string{}
	for _, fe := range ve.Errors {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "Invalid feedback type", fields["type"])
	assert.Equal(t, "Rating must be between 1 and 5", fields["rating"])
	assert.Equal(t, "Invalid priority", fields["priority"])
	assert.Equal(t, "Invalid email address", fields["email"])
	assert.Equal(t, "Subject is required", fields["subject"])
	assert.Equal(t, "Message is required", fields["message"])
}
