package bootstrap

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/synura/agency-api/internal/config"
	"github.com/synura/agency-api/internal/notify"
	"github.com/synura/agency-api/pkg/logging"
)

type nopSES struct{}

func (nopSES) SendEmail(context.Context, *sesv2.SendEmailInput, ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	return &sesv2.SendEmailOutput{}, nil
}

func TestResolveEmailProvider(t *testing.T) {
	cases := []struct {
		name string
		cfg  appconfig.Config
		want string
	}{
		{"explicit sendgrid", appconfig.Config{EmailProvider: "SendGrid"}, EmailProviderSendGrid},
		{"explicit ses", appconfig.Config{EmailProvider: "ses"}, EmailProviderSES},
		{"explicit stub", appconfig.Config{EmailProvider: "stub", SendGridAPIKey: "SG.x"}, EmailProviderStub},
		{"auto prefers sendgrid", appconfig.Config{EmailProvider: "auto", SendGridAPIKey: "SG.x", MailgunDomain: "mg", MailgunAPIKey: "k"}, EmailProviderSendGrid},
		{"auto mailgun", appconfig.Config{EmailProvider: "auto", MailgunDomain: "mg.synura.ai", MailgunAPIKey: "k"}, EmailProviderMailgun},
		{"auto mailgun needs both", appconfig.Config{EmailProvider: "auto", MailgunDomain: "mg.synura.ai"}, EmailProviderStub},
		{"auto ses with static keys", appconfig.Config{EmailProvider: "auto", AWSAccessKeyID: "AKIA"}, EmailProviderSES},
		{"auto nothing", appconfig.Config{EmailProvider: "auto"}, EmailProviderStub},
		{"unknown falls back to auto", appconfig.Config{EmailProvider: "postmark"}, EmailProviderStub},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveEmailProvider(&tc.cfg))
		})
	}
}

func TestBuildEmailSender(t *testing.T) {
	logger := logging.Discard()

	sender, provider, _ := BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "SG.test"}, nil, logger)
	require.NotNil(t, sender)
	assert.Equal(t, EmailProviderSendGrid, provider)
	assert.IsType(t, &notify.SendGridSender{}, sender)

	sender, provider, _ = BuildEmailSender(&appconfig.Config{EmailProvider: "mailgun", MailgunDomain: "mg.synura.ai", MailgunAPIKey: "key"}, nil, logger)
	require.NotNil(t, sender)
	assert.Equal(t, EmailProviderMailgun, provider)

	sender, provider, _ = BuildEmailSender(&appconfig.Config{EmailProvider: "ses"}, nopSES{}, logger)
	require.NotNil(t, sender)
	assert.Equal(t, EmailProviderSES, provider)
	assert.IsType(t, &notify.SESSender{}, sender)

	sender, _, _ = BuildEmailSender(&appconfig.Config{EmailProvider: "auto"}, nil, logger)
	assert.IsType(t, &notify.StubEmailSender{}, sender)
}

func TestBuildEmailSenderMissingCredentials(t *testing.T) {
	logger := logging.Discard()

	sender, provider, reason := BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid"}, nil, logger)
	assert.Nil(t, sender)
	assert.Equal(t, EmailProviderSendGrid, provider)
	assert.NotEmpty(t, reason)

	sender, _, reason = BuildEmailSender(&appconfig.Config{EmailProvider: "ses"}, nil, logger)
	assert.Nil(t, sender)
	assert.NotEmpty(t, reason)

	sender, _, reason = BuildEmailSender(nil, nil, logger)
	assert.Nil(t, sender)
	assert.Equal(t, "missing config", reason)
}
