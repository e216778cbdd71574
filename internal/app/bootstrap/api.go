package bootstrap

import (
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/synura/agency-api/internal/analytics"
	"github.com/synura/agency-api/internal/api/router"
	"github.com/synura/agency-api/internal/apikeys"
	appconfig "github.com/synura/agency-api/internal/config"
	"github.com/synura/agency-api/internal/http/handlers"
	httpmiddleware "github.com/synura/agency-api/internal/http/middleware"
	"github.com/synura/agency-api/internal/intake"
	"github.com/synura/agency-api/internal/leadlog"
	"github.com/synura/agency-api/internal/leads"
	"github.com/synura/agency-api/internal/notify"
	"github.com/synura/agency-api/internal/observability/metrics"
	"github.com/synura/agency-api/internal/roi"
	"github.com/synura/agency-api/internal/voice"
	"github.com/synura/agency-api/pkg/logging"
)

// APIDeps are the connections opened by the binary before the API is built.
// Every field is optional.
type APIDeps struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
	SES   notify.SESAPI
	// Registry receives the lead metrics and backs /metrics. A fresh registry
	// with the Go and process collectors is used when nil.
	Registry *prometheus.Registry
}

// BuildAPIHandler wires the lead pipeline, the intake service, API keys,
// request analytics and every HTTP handler into the router.
func BuildAPIHandler(cfg *appconfig.Config, deps APIDeps, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	leadMetrics := metrics.NewLeadMetrics(reg)

	kitClient, upserter := BuildCRM(cfg, logger)

	sender, provider, reason := BuildEmailSender(cfg, deps.SES, logger)
	if sender == nil {
		logger.Warn("email notifications disabled", "provider", provider, "reason", reason)
	} else {
		logger.Info("email notifications enabled", "provider", provider)
	}
	dispatcher := notify.NewLeadDispatcher(sender, cfg.EmailToTeam, cfg.SideEffectTimeout, logger)

	validator := leads.NewValidator()
	pipelineCfg := leads.PipelineConfig{
		CRM:       upserter,
		Notifier:  dispatcher,
		Metrics:   leadMetrics,
		Validator: validator,
		Logger:    logger,
	}
	intakeCfg := intake.Config{
		CRM:       upserter,
		Mailer:    dispatcher,
		Metrics:   leadMetrics,
		Validator: validator,
		Logger:    logger,
	}

	// Everything below needs Postgres. Interfaces stay nil without a pool so
	// handlers answer 503 and the middleware is skipped.
	var (
		captureLog handlers.CaptureLog
		keyManager handlers.KeyManager
		reports    handlers.AnalyticsReporter
		keyAuth    httpmiddleware.KeyAuthenticator
		requestLog httpmiddleware.RequestRecorder
	)
	if deps.Pool != nil {
		store := leadlog.NewPostgresStore(deps.Pool)
		pipelineCfg.Captures = store
		intakeCfg.Captures = store
		captureLog = store

		keys := apikeys.NewService(apikeys.Config{
			Store:    apikeys.NewPostgresStore(deps.Pool),
			Cost:     cfg.APIKeyHashCost,
			CacheTTL: cfg.APIKeyCacheTTL,
			Logger:   logger,
		})
		keyManager = keys
		keyAuth = keys

		requests := analytics.NewPostgresStore(deps.Pool)
		requestLog = requests
		reports = analytics.NewReporter(requests, store, keys, logger)
	}
	pipeline := leads.NewPipeline(pipelineCfg)

	retell := voice.NewClient(voice.Config{
		APIKey:  cfg.RetellAPIKey,
		BaseURL: cfg.RetellBaseURL,
		Logger:  logger,
	})

	var kitAdmin handlers.KitAdmin
	if kitClient != nil {
		kitAdmin = kitClient
	}

	return router.New(&router.Config{
		Logger:         logger,
		LeadsHandler:   leads.NewHandler(pipeline, logger),
		VoiceHandler:   voice.NewHandler(retell, cfg.RetellAgentID, logger),
		IntakeHandler:  intake.NewHandler(intake.NewService(intakeCfg), logger),
		ROIHandler:     roi.NewHandler(validator, pipeline, logger),
		KitDiagnostics: handlers.NewKitDiagnosticsHandler(kitAdmin, upserter, logger),
		AdminSession: handlers.NewAdminSessionHandler(handlers.AdminSessionConfig{
			AccessKey: cfg.AdminAccessKey,
			Secret:    cfg.AdminSessionSecret,
			TTL:       cfg.AdminSessionTTL,
			Secure:    !cfg.IsDevelopment(),
		}, logger),
		AdminLeads:         handlers.NewAdminLeadsHandler(captureLog, logger),
		AdminKeys:          handlers.NewAdminKeysHandler(keyManager, validator, logger),
		AdminAnalytics:     handlers.NewAdminAnalyticsHandler(reports, logger),
		AdminSessionSecret: adminSecret(cfg),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        BuildRateLimiter(cfg, deps.Redis),
		APIKeys:            keyAuth,
		Analytics:          requestLog,
	})
}

// adminSecret returns the signing secret only when admin access is fully
// configured, so a secret without an access key keeps the routes closed.
func adminSecret(cfg *appconfig.Config) string {
	if !cfg.AdminEnabled() {
		return ""
	}
	return cfg.AdminSessionSecret
}
