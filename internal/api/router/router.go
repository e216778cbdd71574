package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/synura/agency-api/internal/http/handlers"
	httpmiddleware "github.com/synura/agency-api/internal/http/middleware"
	"github.com/synura/agency-api/internal/intake"
	"github.com/synura/agency-api/internal/leads"
	"github.com/synura/agency-api/internal/roi"
	"github.com/synura/agency-api/internal/voice"
	"github.com/synura/agency-api/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	LeadsHandler       *leads.Handler
	VoiceHandler       *voice.Handler
	IntakeHandler      *intake.Handler
	ROIHandler         *roi.Handler
	KitDiagnostics     *handlers.KitDiagnosticsHandler
	AdminSession       *handlers.AdminSessionHandler
	AdminLeads         *handlers.AdminLeadsHandler
	AdminKeys          *handlers.AdminKeysHandler
	AdminAnalytics     *handlers.AdminAnalyticsHandler
	AdminSessionSecret string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimiter guards the public POST routes. Nil disables limiting.
	RateLimiter httpmiddleware.Limiter
	// APIKeys authenticates keys presented on public routes. Nil leaves
	// every public request anonymous.
	APIKeys httpmiddleware.KeyAuthenticator
	// Analytics records one row per request. Nil disables recording.
	Analytics httpmiddleware.RequestRecorder
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	r := chi.NewRouter()

	// CORS runs first so preflights and error responses carry the headers.
	r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(logger))
	if cfg.Analytics != nil {
		r.Use(httpmiddleware.RequestAnalytics(cfg.Analytics, logger))
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Public lead capture endpoints
	r.Group(func(public chi.Router) {
		if cfg.APIKeys != nil {
			public.Use(httpmiddleware.APIKey(cfg.APIKeys, logger))
		}
		if cfg.RateLimiter != nil {
			public.Use(httpmiddleware.RateLimit(cfg.RateLimiter, logger))
		}
		if cfg.LeadsHandler != nil {
			public.Post("/contact", cfg.LeadsHandler.SubmitContact)
		}
		public.Route("/v1", func(v1 chi.Router) {
			if cfg.LeadsHandler != nil {
				v1.Post("/contact", cfg.LeadsHandler.SubmitContact)
				v1.Post("/voice/leads", cfg.LeadsHandler.CaptureVoiceLead)
			}
			if cfg.VoiceHandler != nil {
				v1.Post("/voice/create-call", cfg.VoiceHandler.CreateCall)
			}
			if cfg.IntakeHandler != nil {
				v1.Post("/voice/meetings", cfg.IntakeHandler.BookMeeting)
				v1.Post("/voice/feedback", cfg.IntakeHandler.SubmitFeedback)
			}
			if cfg.ROIHandler != nil {
				v1.Post("/roi/estimate", cfg.ROIHandler.Estimate)
			}
		})
		if cfg.KitDiagnostics != nil {
			public.Post("/test/kit", cfg.KitDiagnostics.RunAction)
		}
	})
	if cfg.KitDiagnostics != nil {
		r.Get("/test/kit", cfg.KitDiagnostics.TestConnection)
	}

	// Admin routes. Without a session secret every protected route is 401.
	r.Route("/admin", func(admin chi.Router) {
		if cfg.AdminSession != nil {
			admin.Post("/session", cfg.AdminSession.Create)
			admin.Delete("/session", cfg.AdminSession.Delete)
		}
		admin.Group(func(protected chi.Router) {
			protected.Use(httpmiddleware.AdminSession(cfg.AdminSessionSecret))
			if cfg.AdminLeads != nil {
				protected.Get("/leads", cfg.AdminLeads.ListLeads)
				protected.Get("/leads/stats", cfg.AdminLeads.GetStats)
			}
			if cfg.AdminKeys != nil {
				protected.Get("/keys", cfg.AdminKeys.ListKeys)
				protected.Post("/keys", cfg.AdminKeys.CreateKey)
				protected.Delete("/keys", cfg.AdminKeys.RemoveKey)
			}
			if cfg.AdminAnalytics != nil {
				protected.Get("/analytics", cfg.AdminAnalytics.GetAnalytics)
				protected.Get("/dashboard", cfg.AdminAnalytics.GetDashboard)
			}
		})
	})

	return r
}
