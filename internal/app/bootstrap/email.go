package bootstrap

import (
	"strings"

	appconfig "github.com/synura/agency-api/internal/config"
	"github.com/synura/agency-api/internal/notify"
	"github.com/synura/agency-api/pkg/logging"
)

// Email providers accepted by EMAIL_PROVIDER.
const (
	EmailProviderAuto     = "auto"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderSES      = "ses"
	EmailProviderMailgun  = "mailgun"
	EmailProviderStub     = "stub"
)

// ResolveEmailProvider picks the concrete provider for cfg. In auto mode the
// first provider with credentials wins: SendGrid, Mailgun, then SES when
// static AWS keys are present. Otherwise emails are only logged.
func ResolveEmailProvider(cfg *appconfig.Config) string {
	if cfg == nil {
		return EmailProviderStub
	}
	switch p := strings.ToLower(strings.TrimSpace(cfg.EmailProvider)); p {
	case EmailProviderSendGrid, EmailProviderSES, EmailProviderMailgun, EmailProviderStub:
		return p
	}
	switch {
	case strings.TrimSpace(cfg.SendGridAPIKey) != "":
		return EmailProviderSendGrid
	case strings.TrimSpace(cfg.MailgunDomain) != "" && strings.TrimSpace(cfg.MailgunAPIKey) != "":
		return EmailProviderMailgun
	case strings.TrimSpace(cfg.AWSAccessKeyID) != "":
		return EmailProviderSES
	default:
		return EmailProviderStub
	}
}

// BuildEmailSender creates the team notification sender. ses is only used
// for the SES provider. It returns the sender, the provider name, and a
// reason when the sender is nil.
func BuildEmailSender(cfg *appconfig.Config, ses notify.SESAPI, logger *logging.Logger) (notify.EmailSender, string, string) {
	if cfg == nil {
		return nil, "", "missing config"
	}
	if logger == nil {
		logger = logging.Default()
	}

	provider := ResolveEmailProvider(cfg)
	senderCfg := notify.SenderConfig{
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	}

	switch provider {
	case EmailProviderSendGrid:
		senderCfg.APIKey = cfg.SendGridAPIKey
		if s := notify.NewSendGridSender(senderCfg, logger); s != nil {
			return s, provider, ""
		}
		return nil, provider, "SENDGRID_API_KEY not set"
	case EmailProviderMailgun:
		senderCfg.APIKey = cfg.MailgunAPIKey
		senderCfg.Domain = cfg.MailgunDomain
		if s := notify.NewMailgunSender(senderCfg, logger); s != nil {
			return s, provider, ""
		}
		return nil, provider, "MAILGUN_DOMAIN and MAILGUN_API_KEY required"
	case EmailProviderSES:
		if s := notify.NewSESSender(ses, senderCfg, logger); s != nil {
			return s, provider, ""
		}
		return nil, provider, "ses client unavailable"
	default:
		return notify.NewStubEmailSender(logger), EmailProviderStub, ""
	}
}
