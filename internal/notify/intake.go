package notify

import (
	"fmt"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"
)

// Side effect names for meeting and feedback mail.
const (
	EffectConfirmation    = "confirmation"
	EffectAcknowledgement = "acknowledgement"
)

// MeetingNotification describes a booking request.
type MeetingNotification struct {
	MeetingID     string
	Name          string
	Email         string
	Company       string
	Phone         string
	PreferredDate string
	PreferredTime string
	Timezone      string
	MeetingType   string
	Duration      string
	Description   string
	Urgency       string
	Source        string
	Timestamp     time.Time
}

// FeedbackNotification describes a feedback submission after routing.
type FeedbackNotification struct {
	FeedbackID       string
	Name             string
	Email            string
	Type             string
	Category         string
	Rating           *float64
	Subject          string
	Message          string
	Page             string
	SessionID        string
	Priority         string
	ContactBack      bool
	AssignedTeam     string
	Escalation       string
	DueDate          time.Time
	ExpectedResponse string
	Timestamp        time.Time
}

var intakeFuncs = texttemplate.FuncMap{
	"fallback":    orDefault,
	"typeMessage": FeedbackTypeMessage,
	"rfc3339": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
	"rating": func(r *float64) string {
		if r == nil {
			return "Not rated"
		}
		return strconv.FormatFloat(*r, 'f', -1, 64) + "/5"
	},
}

var meetingTeamTemplate = texttemplate.Must(texttemplate.New("meeting_team").Funcs(intakeFuncs).Option("missingkey=error").Parse(
	`New {{.MeetingType}} meeting requested

Name: {{.Name}}
Email: {{.Email}}
Company: {{fallback .Company "Not provided"}}
Phone: {{fallback .Phone "Not provided"}}
Duration: {{.Duration}} minutes
Urgency: {{.Urgency}}
Preferred date: {{fallback .PreferredDate "Flexible"}}
Preferred time: {{fallback .PreferredTime "Flexible"}} ({{.Timezone}})
Source: {{.Source}}

Details:
{{fallback .Description "No additional details"}}

Meeting ID: {{.MeetingID}}
Timestamp: {{rfc3339 .Timestamp}}
`))

var meetingConfirmationTemplate = texttemplate.Must(texttemplate.New("meeting_confirmation").Funcs(intakeFuncs).Option("missingkey=error").Parse(
	`Hi {{.Name}},

Thanks for booking a {{.Duration}} minute {{.MeetingType}} with Synura AI Solutions.

What happens next:
- You will receive a calendar invitation within 24 hours
- We will send a preparation guide to help you get the most from our consultation
- If you need to reschedule, please contact us at sales@synura.ai

Meeting ID: {{.MeetingID}}
`))

var feedbackTeamTemplate = texttemplate.Must(texttemplate.New("feedback_team").Funcs(intakeFuncs).Option("missingkey=error").Parse(
	`New {{.Type}} feedback for {{.AssignedTeam}}

Subject: {{.Subject}}
Category: {{.Category}}
Priority: {{.Priority}}
Escalation: {{.Escalation}}
Rating: {{rating .Rating}}
Due: {{rfc3339 .DueDate}}

From: {{fallback .Name "Anonymous"}} <{{fallback .Email "no email"}}>
Contact back: {{if and .Email .ContactBack}}yes{{else}}no{{end}}
Page: {{fallback .Page "unknown"}}
{{- if .SessionID}}
Session: {{.SessionID}}{{end}}

Message:
{{.Message}}

Feedback ID: {{.FeedbackID}}
Timestamp: {{rfc3339 .Timestamp}}
`))

var feedbackAckTemplate = texttemplate.Must(texttemplate.New("feedback_ack").Funcs(intakeFuncs).Option("missingkey=error").Parse(
	`Hi {{fallback .Name "Valued User"}},

{{typeMessage .Type}}

Reference: {{.FeedbackID}}
Expected response: {{.ExpectedResponse}}

The Synura team
`))

// FeedbackTypeMessage is the acknowledgement line for a feedback type.
func FeedbackTypeMessage(feedbackType string) string {
	switch feedbackType {
	case "bug":
		return "Thank you for reporting this bug. Our development team will investigate and fix this issue."
	case "feature":
		return "Thank you for your feature suggestion. We'll consider it for our product roadmap."
	case "complaint":
		return "We apologize for any inconvenience. Our team will review your concerns and work to resolve them."
	case "praise":
		return "Thank you for your kind words! We'll share your feedback with our team."
	case "suggestion":
		return "Thank you for your suggestion. We value your input and will consider it for improvements."
	default:
		return "Thank you for your feedback. We appreciate you taking the time to share your thoughts."
	}
}

func render(t *texttemplate.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", t.Name(), err)
	}
	return b.String(), nil
}

// RenderMeetingTeamEmail builds the operations alert for a booking. High
// urgency bookings are flagged in the subject.
func RenderMeetingTeamEmail(n MeetingNotification) (EmailMessage, error) {
	body, err := render(meetingTeamTemplate, n)
	if err != nil {
		return EmailMessage{}, err
	}
	subject := fmt.Sprintf("New %s scheduled with %s (%s)", n.MeetingType, n.Name, orDefault(n.Company, "No company"))
	if n.Urgency == "high" {
		subject = "[URGENT] " + subject
	}
	return EmailMessage{Subject: subject, Body: body}, nil
}

// RenderMeetingConfirmation builds the email sent to the person booking.
func RenderMeetingConfirmation(n MeetingNotification) (EmailMessage, error) {
	body, err := render(meetingConfirmationTemplate, n)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      n.Email,
		ToName:  n.Name,
		Subject: "Meeting Confirmation - Synura AI Solutions",
		Body:    body,
	}, nil
}

// RenderFeedbackTeamEmail builds the alert for the team a submission was
// routed to. Immediate escalations are prefixed with URGENT.
func RenderFeedbackTeamEmail(n FeedbackNotification) (EmailMessage, error) {
	body, err := render(feedbackTeamTemplate, n)
	if err != nil {
		return EmailMessage{}, err
	}
	subject := fmt.Sprintf("New %s feedback: %s", n.Type, n.Subject)
	if n.Escalation == "immediate" {
		subject = "URGENT: " + subject
	}
	return EmailMessage{Subject: subject, Body: body}, nil
}

// RenderFeedbackAcknowledgement builds the reply to the submitter.
func RenderFeedbackAcknowledgement(n FeedbackNotification) (EmailMessage, error) {
	body, err := render(feedbackAckTemplate, n)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{
		To:      n.Email,
		ToName:  n.Name,
		Subject: "Feedback Received - " + n.FeedbackID,
		Body:    body,
	}, nil
}
