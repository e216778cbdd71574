package leads

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/synura/agency-api/internal/crm"
	"github.com/synura/agency-api/internal/leadlog"
	"github.com/synura/agency-api/internal/notify"
	"github.com/synura/agency-api/internal/sideeffect"
	"github.com/synura/agency-api/pkg/logging"
)

var pipelineTracer = otel.Tracer("agency.internal.leads")

// ContactSyncer pushes a lead into the CRM.
type ContactSyncer interface {
	Upsert(ctx context.Context, c crm.Contact) sideeffect.Outcome
}

// LeadNotifier alerts the team about a lead.
type LeadNotifier interface {
	Dispatch(ctx context.Context, n notify.LeadNotification, ch notify.Channel) sideeffect.Outcome
}

// CaptureRecorder stores the operator audit row for a lead.
type CaptureRecorder interface {
	Record(ctx context.Context, c leadlog.Capture) error
}

// PipelineMetrics receives pipeline counters. *metrics.LeadMetrics satisfies it.
type PipelineMetrics interface {
	ObserveSubmission(source, status string)
	ObserveSideEffect(effect string, delivered bool)
	ObservePipelineLatency(source string, seconds float64)
}

// PipelineConfig wires a Pipeline. CRM and Notifier are required for the
// side effects to be attempted; Captures and Metrics are optional.
type PipelineConfig struct {
	CRM       ContactSyncer
	Notifier  LeadNotifier
	Captures  CaptureRecorder
	Metrics   PipelineMetrics
	Validator *Validator
	Logger    *logging.Logger
	Now       func() time.Time
}

// Pipeline validates leads and fans them out to the CRM and the team inbox.
type Pipeline struct {
	crm       ContactSyncer
	notifier  LeadNotifier
	captures  CaptureRecorder
	metrics   PipelineMetrics
	validator *Validator
	logger    *logging.Logger
	now       func() time.Time
}

// NewPipeline builds a pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Validator == nil {
		cfg.Validator = NewValidator()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	return &Pipeline{
		crm:       cfg.CRM,
		notifier:  cfg.Notifier,
		captures:  cfg.Captures,
		metrics:   cfg.Metrics,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

type noopMetrics struct{}

func (noopMetrics) ObserveSubmission(string, string)       {}
func (noopMetrics) ObserveSideEffect(string, bool)         {}
func (noopMetrics) ObservePipelineLatency(string, float64) {}

const captureTimeout = 3 * time.Second

// Submission outcomes for metrics.
const (
	statusAccepted = "accepted"
	statusRejected = "rejected"
	statusError    = "error"
)

// SubmitContact validates a decoded contact form body and runs the side
// effects. A *ValidationError means nothing was attempted. ErrUnexpected
// covers panics outside the guarded side effects.
func (p *Pipeline) SubmitContact(ctx context.Context, raw map[string]any, meta RequestMeta) (res Result, err error) {
	start := time.Now()
	defer p.guard(crm.SourceContactForm, start, &res, &err)

	sub, err := p.validator.ValidateContact(raw)
	if err != nil {
		return Result{}, err
	}
	rec := NewContactRecord(sub, p.now(), meta)
	return p.Dispatch(ctx, rec), nil
}

// SubmitVoiceLead is SubmitContact for voice agent captures.
func (p *Pipeline) SubmitVoiceLead(ctx context.Context, raw map[string]any, meta RequestMeta) (lead VoiceLead, res Result, err error) {
	start := time.Now()
	defer p.guard(crm.SourceVoiceAgent, start, &res, &err)

	lead, err = p.validator.ValidateVoiceLead(raw)
	if err != nil {
		return VoiceLead{}, Result{}, err
	}
	rec := NewVoiceRecord(lead, p.now(), meta)
	return lead, p.Dispatch(ctx, rec), nil
}

func (p *Pipeline) guard(source string, start time.Time, res *Result, err *error) {
	if r := recover(); r != nil {
		p.logger.Error("lead pipeline panicked", "source", source, "panic", fmt.Sprint(r))
		*res = Result{}
		*err = fmt.Errorf("%w: %v", ErrUnexpected, r)
	}

	switch _, invalid := IsValidation(*err); {
	case *err == nil:
		p.metrics.ObserveSubmission(source, statusAccepted)
		p.metrics.ObservePipelineLatency(source, time.Since(start).Seconds())
	case invalid:
		p.metrics.ObserveSubmission(source, statusRejected)
	default:
		p.metrics.ObserveSubmission(source, statusError)
	}
}

// Dispatch runs the CRM upsert and the notification concurrently for an
// already validated record. Neither failure cancels the other and neither
// is returned as an error. The side effects are detached from ctx
// cancellation so a client disconnect does not abort delivery.
func (p *Pipeline) Dispatch(ctx context.Context, rec Record) Result {
	ctx, span := pipelineTracer.Start(context.WithoutCancel(ctx), "leads.pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("agency.lead_id", rec.ID),
		attribute.String("agency.lead_source", rec.Source),
	)

	outcomes := sideeffect.Gather(ctx,
		func(ctx context.Context) sideeffect.Outcome {
			if p.crm == nil {
				return sideeffect.Failed(crm.EffectName, crm.ErrNotConfigured)
			}
			return p.crm.Upsert(ctx, rec.crmContact())
		},
		func(ctx context.Context) sideeffect.Outcome {
			if p.notifier == nil {
				return sideeffect.Failed(notify.EffectName, notify.ErrNotConfigured)
			}
			return p.notifier.Dispatch(ctx, rec.notification(), rec.Channel)
		},
	)

	res := Result{
		LeadID:           rec.ID,
		CRMSynced:        outcomes[0].Delivered,
		NotificationSent: outcomes[1].Delivered,
	}
	for _, out := range outcomes {
		p.metrics.ObserveSideEffect(out.Name, out.Delivered)
	}
	span.SetAttributes(
		attribute.Bool("agency.crm_synced", res.CRMSynced),
		attribute.Bool("agency.notification_sent", res.NotificationSent),
	)

	p.logger.Info("lead processed",
		"lead_id", rec.ID,
		"source", rec.Source,
		"crm_synced", res.CRMSynced,
		"notification_sent", res.NotificationSent,
	)

	p.recordCapture(ctx, rec, res)
	return res
}

func (p *Pipeline) recordCapture(ctx context.Context, rec Record, res Result) {
	if p.captures == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	err := p.captures.Record(ctx, leadlog.Capture{
		LeadID:           rec.ID,
		Source:           rec.Source,
		Name:             rec.Name,
		Email:            rec.Email,
		CompanySize:      rec.CompanySize,
		Intent:           rec.Intent,
		CRMSynced:        res.CRMSynced,
		NotificationSent: res.NotificationSent,
		IPAddress:        rec.Meta.IPAddress,
		UserAgent:        rec.Meta.UserAgent,
		CreatedAt:        rec.CreatedAt,
	})
	if err != nil {
		p.logger.Warn("lead capture log write failed", "lead_id", rec.ID, "error", err)
	}
}
