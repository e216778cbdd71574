package intake

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/synura/agency-api/internal/leadlog"
	"github.com/synura/agency-api/internal/leads"
	"github.com/synura/agency-api/internal/notify"
	"github.com/synura/agency-api/internal/sideeffect"
)

// SourceFeedback labels feedback in metrics and the capture log.
const SourceFeedback = "feedback"

// FeedbackRequest is a validated feedback submission.
type FeedbackRequest struct {
	Name        string   `json:"name" validate:"max=100"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Type        string   `json:"type" validate:"oneof=bug feature general complaint praise suggestion"`
	Category    string   `json:"category" validate:"oneof=website service pricing support retell_agent consultation"`
	Rating      *float64 `json:"rating" validate:"omitempty,min=1,max=5"`
	Subject     string   `json:"subject" validate:"required,max=200"`
	Message     string   `json:"message" validate:"required,max=2000"`
	SessionID   string   `json:"sessionId"`
	Page        string   `json:"page"`
	Priority    string   `json:"priority" validate:"oneof=low medium high urgent"`
	ContactBack bool     `json:"contactBack"`
}

// ApplyDefaults fills the enum defaults.
func (f *FeedbackRequest) ApplyDefaults() {
	if f.Type == "" {
		f.Type = "general"
	}
	if f.Category == "" {
		f.Category = "website"
	}
	if f.Priority == "" {
		f.Priority = "medium"
	}
}

var feedbackMessages = map[string]string{
	"name.max":         "Name must be less than 100 characters",
	"email.email":      "Invalid email address",
	"type.oneof":       "Invalid feedback type",
	"category.oneof":   "Invalid category",
	"rating.min":       "Rating must be between 1 and 5",
	"rating.max":       "Rating must be between 1 and 5",
	"subject.required": "Subject is required",
	"subject.max":      "Subject must be less than 200 characters",
	"message.required": "Message is required",
	"message.max":      "Message must be less than 2000 characters",
	"priority.oneof":   "Invalid priority",
}

var teamByCategory = map[string]string{
	"website":      "development",
	"service":      "customer-success",
	"pricing":      "sales",
	"support":      "support",
	"retell_agent": "ai-team",
	"consultation": "sales",
}

// Routing is where a submission goes and how fast it must be answered.
type Routing struct {
	AssignedTeam     string
	Escalation       string
	DueDate          time.Time
	ExpectedResponse string
}

// Route assigns a team by category and escalates urgent items, complaints,
// high priority items and ratings of 2 or less.
func Route(f FeedbackRequest, now time.Time) Routing {
	team, ok := teamByCategory[f.Category]
	if !ok {
		team = "general"
	}

	escalation := "standard"
	switch {
	case f.Priority == "urgent" || f.Type == "complaint":
		escalation = "immediate"
	case f.Priority == "high" || (f.Rating != nil && *f.Rating <= 2):
		escalation = "priority"
	}

	return Routing{
		AssignedTeam:     team,
		Escalation:       escalation,
		DueDate:          now.UTC().Add(responseWindow(f.Priority)),
		ExpectedResponse: ExpectedResponse(f.Priority),
	}
}

func responseWindow(priority string) time.Duration {
	switch priority {
	case "urgent":
		return 2 * time.Hour
	case "high":
		return 24 * time.Hour
	case "low":
		return 7 * 24 * time.Hour
	default:
		return 3 * 24 * time.Hour
	}
}

// ExpectedResponse is the response promise shown to the submitter.
func ExpectedResponse(priority string) string {
	switch priority {
	case "urgent":
		return "Within 2 hours"
	case "high":
		return "Within 24 hours"
	case "low":
		return "Within 1 week"
	default:
		return "Within 3 business days"
	}
}

// FeedbackResult reports the feedback id, its routing and which emails went out.
type FeedbackResult struct {
	FeedbackID          string
	Routing             Routing
	TeamNotified        bool
	AcknowledgementSent bool
}

// SubmitFeedback validates and routes a submission, alerts the assigned team
// and, when the submitter left an email and asked to be contacted, sends an
// acknowledgement.
func (s *Service) SubmitFeedback(ctx context.Context, raw map[string]any, meta leads.RequestMeta) (req FeedbackRequest, res FeedbackResult, err error) {
	start := time.Now()
	defer s.guard(SourceFeedback, start, &err)

	req.ContactBack = true
	if err := s.validator.ValidateInto(raw, &req, feedbackMessages); err != nil {
		return FeedbackRequest{}, FeedbackResult{}, err
	}

	now := s.now()
	routing := Route(req, now)
	page := req.Page
	if page == "" {
		page = meta.Referer
	}
	n := notify.FeedbackNotification{
		FeedbackID:       leads.NewID("feedback", now, 9),
		Name:             req.Name,
		Email:            req.Email,
		Type:             req.Type,
		Category:         req.Category,
		Rating:           req.Rating,
		Subject:          req.Subject,
		Message:          req.Message,
		Page:             page,
		SessionID:        req.SessionID,
		Priority:         req.Priority,
		ContactBack:      req.ContactBack,
		AssignedTeam:     routing.AssignedTeam,
		Escalation:       routing.Escalation,
		DueDate:          routing.DueDate,
		ExpectedResponse: routing.ExpectedResponse,
		Timestamp:        now.UTC(),
	}

	ctx, span := intakeTracer.Start(context.WithoutCancel(ctx), "intake.feedback")
	defer span.End()
	span.SetAttributes(
		attribute.String("agency.feedback_id", n.FeedbackID),
		attribute.String("agency.escalation", routing.Escalation),
	)

	effects := []sideeffect.Effect{
		s.mail(notify.EffectName, func() (notify.EmailMessage, error) {
			return notify.RenderFeedbackTeamEmail(n)
		}),
	}
	acknowledge := req.Email != "" && req.ContactBack
	if acknowledge {
		effects = append(effects, s.mail(notify.EffectAcknowledgement, func() (notify.EmailMessage, error) {
			return notify.RenderFeedbackAcknowledgement(n)
		}))
	}
	outcomes := sideeffect.Gather(ctx, effects...)
	s.observe(outcomes)

	res = FeedbackResult{
		FeedbackID:   n.FeedbackID,
		Routing:      routing,
		TeamNotified: outcomes[0].Delivered,
	}
	if acknowledge {
		res.AcknowledgementSent = outcomes[1].Delivered
	}
	s.logger.Info("feedback received",
		"feedback_id", res.FeedbackID,
		"type", req.Type,
		"team", routing.AssignedTeam,
		"escalation", routing.Escalation,
		"team_notified", res.TeamNotified,
		"acknowledgement_sent", res.AcknowledgementSent,
	)

	s.record(ctx, leadlog.Capture{
		LeadID:           res.FeedbackID,
		Source:           SourceFeedback,
		Name:             req.Name,
		Email:            req.Email,
		Intent:           req.Type,
		NotificationSent: res.TeamNotified,
		IPAddress:        meta.IPAddress,
		UserAgent:        meta.UserAgent,
		CreatedAt:        n.Timestamp,
	})
	return req, res, nil
}
