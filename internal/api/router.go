// Package api provides the HTTP API for AliWeather.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/api/handler"
	"github.com/aliweather/aliweather/internal/api/middleware"
	"github.com/aliweather/aliweather/internal/dashboard"
	"github.com/aliweather/aliweather/internal/lifecycle"
	"github.com/aliweather/aliweather/internal/preferences"
	"github.com/aliweather/aliweather/internal/provider/resilience"
	"github.com/aliweather/aliweather/internal/session"
	"github.com/aliweather/aliweather/internal/weather"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool
	Clock       clockwork.Clock

	Providers   *resilience.Registry
	Weather     *weather.Service
	Sessions    *lifecycle.Registry
	Tokens      *session.TokenService
	Dashboard   *dashboard.Service
	Preferences *preferences.Service
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "aliweather-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind the load balancer
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // Reject non-JSON request bodies

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Providers: cfg.Providers,
		Sessions:  cfg.Sessions,
		Weather:   cfg.Weather,
		Clock:     cfg.Clock,
	})
	weatherHandler := handler.NewWeatherHandler(cfg.Weather, cfg.Logger)
	riskHandler := handler.NewRiskHandler(cfg.Clock)
	sessionHandler := handler.NewSessionHandler(cfg.Sessions, cfg.Tokens, cfg.Dashboard, cfg.Logger)
	preferencesHandler := handler.NewPreferencesHandler(cfg.Preferences, cfg.Logger)

	sessionAuth := middleware.SessionAuth(cfg.Tokens, cfg.Sessions)

	sessionRateLimit := middleware.RateLimitByIP(middleware.SessionRateLimit)     // 10 req/min
	expensiveRateLimit := middleware.RateLimitByIP(middleware.ExpensiveRateLimit) // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)   // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public, unlimited for probes)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Weather endpoints call the provider on a cache miss
		r.Group(func(r chi.Router) {
			r.Use(expensiveRateLimit)
			r.Get("/weather", weatherHandler.GetWeather)
			r.Get("/locations", weatherHandler.SearchLocations)
		})

		// Stateless risk engine
		r.Group(func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Post("/risk/evaluate", riskHandler.Evaluate)
			r.Get("/risk/labels", riskHandler.ListLabels)
			r.Get("/risk/tips/{severity}", riskHandler.GetSafetyTips)
			r.Get("/audio/patterns/{severity}", riskHandler.GetAudioPattern)
		})

		r.With(sessionRateLimit).Post("/sessions", sessionHandler.CreateSession)

		// Session endpoints (session token) - session-based rate limiting
		r.Route("/session", func(r chi.Router) {
			r.Use(sessionAuth)
			r.Use(middleware.RateLimitBySession(middleware.StandardRateLimit))
			r.Get("/alerts", sessionHandler.GetAlerts)
			r.Post("/alerts/events", sessionHandler.ApplyEvent)
			r.Post("/audio/play", sessionHandler.PlaySound)
			r.With(middleware.RateLimitBySession(middleware.ExpensiveRateLimit)).
				Post("/refresh", sessionHandler.Refresh)
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Use(sessionAuth)
			r.Use(middleware.RateLimitBySession(middleware.StandardRateLimit))
			r.Get("/", preferencesHandler.ListPreferences)
			r.Get("/{key}", preferencesHandler.GetPreference)
			r.Put("/{key}", preferencesHandler.UpdatePreference)
		})
	})

	return r
}
