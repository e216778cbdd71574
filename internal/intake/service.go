// Package intake handles the voice agent's meeting bookings and feedback.
// Both follow the lead pattern: validate, assign an id, then run best-effort
// side effects whose outcome is reported but never fails the request.
package intake

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/synura/agency-api/internal/leadlog"
	"github.com/synura/agency-api/internal/leads"
	"github.com/synura/agency-api/internal/notify"
	"github.com/synura/agency-api/internal/sideeffect"
	"github.com/synura/agency-api/pkg/logging"
)

var intakeTracer = otel.Tracer("agency.internal.intake")

// Mailer delivers rendered email as a named side effect.
// *notify.LeadDispatcher satisfies it.
type Mailer interface {
	Deliver(ctx context.Context, effect string, msg notify.EmailMessage) sideeffect.Outcome
}

// Config wires a Service. CRM, Mailer, Captures and Metrics are optional.
type Config struct {
	CRM       leads.ContactSyncer
	Mailer    Mailer
	Captures  leads.CaptureRecorder
	Metrics   leads.PipelineMetrics
	Validator *leads.Validator
	Logger    *logging.Logger
	Now       func() time.Time
}

// Service books meetings and accepts feedback.
type Service struct {
	crm       leads.ContactSyncer
	mailer    Mailer
	captures  leads.CaptureRecorder
	metrics   leads.PipelineMetrics
	validator *leads.Validator
	logger    *logging.Logger
	now       func() time.Time
}

// NewService builds a Service from cfg.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Validator == nil {
		cfg.Validator = leads.NewValidator()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		crm:       cfg.CRM,
		mailer:    cfg.Mailer,
		captures:  cfg.Captures,
		metrics:   cfg.Metrics,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
}

const captureTimeout = 3 * time.Second

// mail renders lazily so a template failure becomes an undelivered outcome.
func (s *Service) mail(effect string, render func() (notify.EmailMessage, error)) sideeffect.Effect {
	return func(ctx context.Context) sideeffect.Outcome {
		if s.mailer == nil {
			return sideeffect.Failed(effect, notify.ErrNotConfigured)
		}
		msg, err := render()
		if err != nil {
			return sideeffect.Failed(effect, err)
		}
		return s.mailer.Deliver(ctx, effect, msg)
	}
}

func (s *Service) observe(outcomes []sideeffect.Outcome) {
	if s.metrics == nil {
		return
	}
	for _, out := range outcomes {
		s.metrics.ObserveSideEffect(out.Name, out.Delivered)
	}
}

// guard turns a panic into leads.ErrUnexpected and records the submission.
func (s *Service) guard(source string, start time.Time, err *error) {
	if r := recover(); r != nil {
		s.logger.Error("intake panicked", "source", source, "panic", fmt.Sprint(r))
		*err = fmt.Errorf("%w: %v", leads.ErrUnexpected, r)
	}
	if s.metrics == nil {
		return
	}
	_, invalid := leads.IsValidation(*err)
	switch {
	case *err == nil:
		s.metrics.ObserveSubmission(source, "accepted")
		s.metrics.ObservePipelineLatency(source, time.Since(start).Seconds())
	case invalid:
		s.metrics.ObserveSubmission(source, "rejected")
	default:
		s.metrics.ObserveSubmission(source, "error")
	}
}

func (s *Service) record(ctx context.Context, c leadlog.Capture) {
	if s.captures == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()
	if err := s.captures.Record(ctx, c); err != nil {
		s.logger.Warn("intake capture log write failed", "id", c.LeadID, "source", c.Source, "error", err)
	}
}
