package crm

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/synura/agency-api/internal/sideeffect"
	"github.com/synura/agency-api/pkg/logging"
)

// EffectName labels CRM outcomes in logs and metrics.
const EffectName = "crm"

var crmTracer = otel.Tracer("agency.internal.crm")

// Contact is the lead as the CRM sees it.
type Contact struct {
	Email       string
	Name        string
	CompanySize string
	Message     string
	Source      string
	ROI         *ROIDetails
}

// SubscriberCreator is the part of the Kit client the upserter needs.
type SubscriberCreator interface {
	CreateSubscriber(ctx context.Context, sub Subscriber) (*SubscriberRecord, error)
}

// Upserter syncs leads into Kit. It never returns an error: every failure is
// folded into the Outcome and logged.
type Upserter struct {
	client  SubscriberCreator
	timeout time.Duration
	logger  *logging.Logger
}

// NewUpserter wraps client. A nil client yields an upserter that always
// reports ErrNotConfigured.
func NewUpserter(client SubscriberCreator, timeout time.Duration, logger *logging.Logger) *Upserter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Upserter{client: client, timeout: timeout, logger: logger}
}

// Upsert creates or updates the contact, tagged by its lead source.
func (u *Upserter) Upsert(ctx context.Context, c Contact) sideeffect.Outcome {
	ctx, span := crmTracer.Start(ctx, "crm.upsert")
	defer span.End()
	span.SetAttributes(attribute.String("agency.lead_source", c.Source))

	if u == nil || u.client == nil {
		span.SetStatus(codes.Error, ErrNotConfigured.Error())
		return sideeffect.Failed(EffectName, ErrNotConfigured)
	}

	sub := Subscriber{
		Email:     c.Email,
		FirstName: c.Name,
		Tags:      ContactTags(c),
		Fields:    ContactFields(c),
	}
	if c.ROI != nil {
		sub.Tags = ROITags(c)
	}

	out := sideeffect.Attempt(ctx, EffectName, u.timeout, func(ctx context.Context) error {
		_, err := u.client.CreateSubscriber(ctx, sub)
		return err
	})
	if out.Err != nil {
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, "crm upsert failed")
		u.logger.Warn("crm sync failed (not critical)", "source", c.Source, "error", out.Err)
		return out
	}
	u.logger.Info("lead synced to crm", "source", c.Source, "duration_ms", out.Duration.Milliseconds())
	return out
}
