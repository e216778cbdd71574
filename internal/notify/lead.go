package notify

import (
	"context"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/synura/agency-api/internal/sideeffect"
	"github.com/synura/agency-api/pkg/logging"
)

// EffectName labels notification outcomes in logs and metrics.
const EffectName = "notification"

var notifyTracer = otel.Tracer("agency.internal.notify")

// Channel is where a lead entered the funnel.
type Channel string

const (
	ChannelForm          Channel = "form"
	ChannelROICalculator Channel = "roi_calculator"
	ChannelVoiceAgent    Channel = "voice_agent"
)

// Label is the human readable channel name used in subjects.
func (c Channel) Label() string {
	switch c {
	case ChannelROICalculator:
		return "ROI Calculator"
	case ChannelVoiceAgent:
		return "Voice Agent"
	default:
		return "Contact Form"
	}
}

// LeadNotification is the payload of a new-lead alert.
type LeadNotification struct {
	LeadID    string
	Name      string
	Email     string
	Company   string
	Phone     string
	Message   string
	Intent    string
	Source    string
	Status    string
	UTMSource string
	Timestamp time.Time
}

type leadView struct {
	LeadNotification
	Channel   string
	Company   string
	Phone     string
	Timestamp string
}

func newLeadView(n LeadNotification, ch Channel) leadView {
	v := leadView{
		LeadNotification: n,
		Channel:          ch.Label(),
		Company:          orDefault(n.Company, "Not provided"),
		Phone:            orDefault(n.Phone, "Not provided"),
		Timestamp:        n.Timestamp.UTC().Format(time.RFC3339),
	}
	if v.Intent == "" {
		v.Intent = "consultation"
	}
	return v
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

var leadTextTemplate = texttemplate.Must(texttemplate.New("lead_text").Option("missingkey=error").Parse(
	`New lead from {{.Channel}}

Name: {{.Name}}
Email: {{.Email}}
Company: {{.Company}}
Phone: {{.Phone}}
Intent: {{.Intent}}
Source: {{.Source}}
{{- if .UTMSource}}
UTM Source: {{.UTMSource}}{{end}}

Message:
{{.Message}}

Lead ID: {{.LeadID}}
Timestamp: {{.Timestamp}}

Respond within 2 hours for best conversion rates.
`))

var leadHTMLTemplate = htmltemplate.Must(htmltemplate.New("lead_html").Option("missingkey=error").Parse(
	`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <h2 style="color: #4f46e5;">New lead from {{.Channel}}</h2>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><strong>Name</strong></td><td>{{.Name}}</td></tr>
    <tr><td><strong>Email</strong></td><td><a href="mailto:{{.Email}}">{{.Email}}</a></td></tr>
    <tr><td><strong>Company</strong></td><td>{{.Company}}</td></tr>
    <tr><td><strong>Phone</strong></td><td>{{.Phone}}</td></tr>
    <tr><td><strong>Intent</strong></td><td>{{.Intent}}</td></tr>
    <tr><td><strong>Source</strong></td><td>{{.Source}}</td></tr>
  </table>
  <h3>Message</h3>
  <p style="white-space: pre-wrap;">{{.Message}}</p>
  <p style="color: #6b7280; font-size: 12px;">Lead ID: {{.LeadID}}<br>Timestamp: {{.Timestamp}}</p>
  <p><strong>Respond within 2 hours for best conversion rates.</strong></p>
</body>
</html>
`))

// RenderLeadEmail builds the operations email for a lead.
func RenderLeadEmail(n LeadNotification, ch Channel) (EmailMessage, error) {
	view := newLeadView(n, ch)

	var text, html strings.Builder
	if err := leadTextTemplate.Execute(&text, view); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render text: %w", err)
	}
	if err := leadHTMLTemplate.Execute(&html, view); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render html: %w", err)
	}
	return EmailMessage{
		Subject: fmt.Sprintf("New %s Lead from %s: %s", view.Intent, view.Channel, n.Name),
		Body:    text.String(),
		HTML:    html.String(),
	}, nil
}

// LeadDispatcher sends new-lead alerts to the operations inbox.
type LeadDispatcher struct {
	sender  EmailSender
	to      string
	timeout time.Duration
	logger  *logging.Logger
}

// NewLeadDispatcher wires a sender to the fixed recipient.
func NewLeadDispatcher(sender EmailSender, to string, timeout time.Duration, logger *logging.Logger) *LeadDispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadDispatcher{
		sender:  sender,
		to:      strings.TrimSpace(to),
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch sends one email for the lead. Failures are reported in the
// Outcome and logged; they are never returned.
func (d *LeadDispatcher) Dispatch(ctx context.Context, n LeadNotification, ch Channel) sideeffect.Outcome {
	ctx, span := notifyTracer.Start(ctx, "notify.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("agency.lead_id", n.LeadID),
		attribute.String("agency.channel", string(ch)),
	)

	fail := func(err error) sideeffect.Outcome {
		span.RecordError(err)
		span.SetStatus(codes.Error, "notification failed")
		if d != nil {
			d.logger.Warn("lead notification failed (not critical)", "lead_id", n.LeadID, "channel", ch, "error", err)
		}
		return sideeffect.Failed(EffectName, err)
	}

	if d == nil || d.sender == nil {
		return fail(ErrNotConfigured)
	}
	if d.to == "" {
		return fail(ErrNoRecipient)
	}

	msg, err := RenderLeadEmail(n, ch)
	if err != nil {
		return fail(err)
	}
	msg.To = d.to

	out := sideeffect.Attempt(ctx, EffectName, d.timeout, func(ctx context.Context) error {
		return d.sender.Send(ctx, msg)
	})
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, "notification failed")
		d.logger.Warn("lead notification failed (not critical)", "lead_id", n.LeadID, "channel", ch, "error", out.Err)
		return out
	}
	d.logger.Info("lead notification sent", "lead_id", n.LeadID, "channel", ch, "duration_ms", out.Duration.Milliseconds())
	return out
}

// Deliver sends an already rendered message as the named side effect. A
// message without a recipient goes to the operations inbox.
func (d *LeadDispatcher) Deliver(ctx context.Context, effect string, msg EmailMessage) sideeffect.Outcome {
	ctx, span := notifyTracer.Start(ctx, "notify.deliver")
	defer span.End()
	span.SetAttributes(attribute.String("agency.effect", effect))

	if d == nil || d.sender == nil {
		span.SetStatus(codes.Error, ErrNotConfigured.Error())
		return sideeffect.Failed(effect, ErrNotConfigured)
	}
	if msg.To == "" {
		msg.To = d.to
	}
	if msg.To == "" {
		span.SetStatus(codes.Error, ErrNoRecipient.Error())
		return sideeffect.Failed(effect, ErrNoRecipient)
	}

	out := sideeffect.Attempt(ctx, effect, d.timeout, func(ctx context.Context) error {
		return d.sender.Send(ctx, msg)
	})
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, "delivery failed")
		d.logger.Warn("email delivery failed (not critical)", "effect", effect, "subject", msg.Subject, "error", out.Err)
		return out
	}
	d.logger.Info("email delivered", "effect", effect, "duration_ms", out.Duration.Milliseconds())
	return out
}
