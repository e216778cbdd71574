package intake

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/synura/agency-api/internal/crm"
	"github.com/synura/agency-api/internal/leadlog"
	"github.com/synura/agency-api/internal/leads"
	"github.com/synura/agency-api/internal/notify"
	"github.com/synura/agency-api/internal/sideeffect"
)

// MeetingRequest is a validated booking request. Empty enum fields take
// their defaults.
type MeetingRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Company       string `json:"company"`
	Phone         string `json:"phone"`
	PreferredDate string `json:"preferredDate"`
	PreferredTime string `json:"preferredTime"`
	Timezone      string `json:"timezone"`
	MeetingType   string `json:"meetingType" validate:"oneof=consultation demo strategy technical"`
	Duration      string `json:"duration" validate:"oneof=30 45 60"`
	Description   string `json:"description" validate:"max=500"`
	Urgency       string `json:"urgency" validate:"oneof=low medium high"`
	Source        string `json:"source" validate:"oneof=website retell form referral"`
	LeadID        string `json:"leadId"`
}

// ApplyDefaults fills the enum defaults.
func (m *MeetingRequest) ApplyDefaults() {
	if m.Timezone == "" {
		m.Timezone = "UTC"
	}
	if m.MeetingType == "" {
		m.MeetingType = "consultation"
	}
	if m.Duration == "" {
		m.Duration = "30"
	}
	if m.Urgency == "" {
		m.Urgency = "medium"
	}
	if m.Source == "" {
		m.Source = "website"
	}
}

var meetingMessages = map[string]string{
	"name.required":     "Name is required",
	"name.max":          "Name must be less than 100 characters",
	"email.required":    "Invalid email address",
	"email.email":       "Invalid email address",
	"meetingType.oneof": "Invalid meeting type",
	"duration.oneof":    "Duration must be 30, 45 or 60 minutes",
	"description.max":   "Description must be less than 500 characters",
	"urgency.oneof":     "Invalid urgency",
	"source.oneof":      "Invalid source",
}

// MeetingResult reports the booking id and which side effects were delivered.
type MeetingResult struct {
	MeetingID        string
	CRMSynced        bool
	TeamNotified     bool
	ConfirmationSent bool
}

// BookMeeting validates a booking and, concurrently, tags the contact in the
// CRM, alerts the team and confirms to the requester. A *leads.ValidationError
// means nothing was attempted.
func (s *Service) BookMeeting(ctx context.Context, raw map[string]any, meta leads.RequestMeta) (req MeetingRequest, res MeetingResult, err error) {
	start := time.Now()
	defer s.guard(crm.SourceMeeting, start, &err)

	if err := s.validator.ValidateInto(raw, &req, meetingMessages); err != nil {
		return MeetingRequest{}, MeetingResult{}, err
	}

	now := s.now()
	n := notify.MeetingNotification{
		MeetingID:     leads.NewID("meeting", now, 9),
		Name:          req.Name,
		Email:         req.Email,
		Company:       req.Company,
		Phone:         req.Phone,
		PreferredDate: req.PreferredDate,
		PreferredTime: req.PreferredTime,
		Timezone:      req.Timezone,
		MeetingType:   req.MeetingType,
		Duration:      req.Duration,
		Description:   req.Description,
		Urgency:       req.Urgency,
		Source:        req.Source,
		Timestamp:     now.UTC(),
	}

	ctx, span := intakeTracer.Start(context.WithoutCancel(ctx), "intake.meeting")
	defer span.End()
	span.SetAttributes(
		attribute.String("agency.meeting_id", n.MeetingID),
		attribute.String("agency.meeting_type", n.MeetingType),
	)

	outcomes := sideeffect.Gather(ctx,
		func(ctx context.Context) sideeffect.Outcome {
			if s.crm == nil {
				return sideeffect.Failed(crm.EffectName, crm.ErrNotConfigured)
			}
			return s.crm.Upsert(ctx, crm.Contact{
				Email:   req.Email,
				Name:    req.Name,
				Message: req.Description,
				Source:  crm.SourceMeeting,
			})
		},
		s.mail(notify.EffectName, func() (notify.EmailMessage, error) {
			return notify.RenderMeetingTeamEmail(n)
		}),
		s.mail(notify.EffectConfirmation, func() (notify.EmailMessage, error) {
			return notify.RenderMeetingConfirmation(n)
		}),
	)
	s.observe(outcomes)

	res = MeetingResult{
		MeetingID:        n.MeetingID,
		CRMSynced:        outcomes[0].Delivered,
		TeamNotified:     outcomes[1].Delivered,
		ConfirmationSent: outcomes[2].Delivered,
	}
	s.logger.Info("meeting booked",
		"meeting_id", res.MeetingID,
		"meeting_type", req.MeetingType,
		"lead_id", req.LeadID,
		"crm_synced", res.CRMSynced,
		"team_notified", res.TeamNotified,
		"confirmation_sent", res.ConfirmationSent,
	)

	s.record(ctx, leadlog.Capture{
		LeadID:           res.MeetingID,
		Source:           crm.SourceMeeting,
		Name:             req.Name,
		Email:            req.Email,
		Intent:           req.MeetingType,
		CRMSynced:        res.CRMSynced,
		NotificationSent: res.TeamNotified,
		IPAddress:        meta.IPAddress,
		UserAgent:        meta.UserAgent,
		CreatedAt:        n.Timestamp,
	})
	return req, res, nil
}
