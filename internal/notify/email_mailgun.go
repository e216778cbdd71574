package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/synura/agency-api/pkg/logging"
)

// MailgunSender sends emails via the Mailgun API.
type MailgunSender struct {
	client    *mailgun.MailgunImpl
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// NewMailgunSender returns nil when the domain or API key is missing.
func NewMailgunSender(cfg SenderConfig, logger *logging.Logger) *MailgunSender {
	if strings.TrimSpace(cfg.Domain) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &MailgunSender{
		client:    mailgun.NewMailgun(cfg.Domain, cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

// Send sends an email via Mailgun.
func (s *MailgunSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notify: mailgun: %w", ErrNotConfigured)
	}

	to := msg.To
	if msg.ToName != "" {
		to = fmt.Sprintf("%s <%s>", msg.ToName, msg.To)
	}
	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)

	message := s.client.NewMessage(from, msg.Subject, msg.Body, to)
	if msg.HTML != "" {
		message.SetHtml(msg.HTML)
	}

	_, messageID, err := s.client.Send(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: mailgun send failed: %w", err)
	}

	s.logger.Debug("email sent via mailgun", "subject", msg.Subject, "message_id", messageID)
	return nil
}

var _ EmailSender = (*MailgunSender)(nil)
