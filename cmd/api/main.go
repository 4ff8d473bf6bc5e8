// Package main provides the entrypoint for the AliWeather API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/alertfeed"
	"github.com/aliweather/aliweather/internal/api"
	"github.com/aliweather/aliweather/internal/api/middleware"
	"github.com/aliweather/aliweather/internal/audio"
	"github.com/aliweather/aliweather/internal/config"
	"github.com/aliweather/aliweather/internal/dashboard"
	"github.com/aliweather/aliweather/internal/database"
	"github.com/aliweather/aliweather/internal/lifecycle"
	"github.com/aliweather/aliweather/internal/preferences"
	"github.com/aliweather/aliweather/internal/provider/resilience"
	"github.com/aliweather/aliweather/internal/session"
	"github.com/aliweather/aliweather/internal/telemetry"
	"github.com/aliweather/aliweather/internal/weather"
	"github.com/aliweather/aliweather/internal/weather/weatherapi"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	tokenIssuer   = "https://api.aliweather.vn"
	tokenAudience = "aliweather-dashboard"

	sessionSweepInterval = 5 * time.Minute
)

func main() {
	const serviceName = "aliweather-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AliWeather API")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.UsingDevSigningKey() {
		log.Warn().Msg("using default session signing key - not secure for production")
	}
	if cfg.WeatherAPIKey == "" {
		log.Warn().Msg("WEATHERAPI_KEY not set - weather requests will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.OTelEnabled {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}
	providerMetrics, err := middleware.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	clock := clockwork.NewRealClock()

	// Weather provider behind a circuit breaker
	providers := resilience.NewRegistry()
	httpCfg := resilience.DefaultClientConfig(weatherapi.ProviderName)
	httpCfg.Registry = providers

	weatherService := weather.NewService(weather.ServiceConfig{
		Provider: weatherapi.NewClient(weatherapi.ClientConfig{
			APIKey:       cfg.WeatherAPIKey,
			BaseURL:      cfg.WeatherAPIBaseURL,
			ForecastDays: cfg.ForecastDays,
			HTTPClient:   resilience.NewClient(httpCfg),
			Clock:        clock,
			Logger:       log,
		}),
		Logger:   log,
		Clock:    clock,
		CacheTTL: cfg.WeatherCacheTTL,
		Metrics:  providerMetrics,
	})
	log.Info().
		Str("provider", weatherapi.ProviderName).
		Dur("cache_ttl", cfg.WeatherCacheTTL).
		Msg("weather service initialized")

	prefsRepo, closeRepo, err := newPreferencesRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.PreferencesBackend).Msg("failed to initialize preferences store")
	}
	defer func() {
		if closeErr := closeRepo.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close preferences store")
		}
	}()

	prefsService := preferences.NewService(preferences.ServiceConfig{
		Repository: prefsRepo,
		Logger:     log,
		Clock:      clock,
	})

	// Idle sessions take their preferences with them.
	sessions := lifecycle.NewRegistry(lifecycle.RegistryConfig{
		Clock:   clock,
		IdleTTL: cfg.SessionTTL,
		Logger:  log,
		OnExpire: func(id string) {
			if forgetErr := prefsService.Forget(context.Background(), id); forgetErr != nil {
				log.Warn().Err(forgetErr).Str("session_id", id).Msg("failed to forget session preferences")
			}
		},
	})
	go sessions.Run(ctx, sessionSweepInterval)

	tokens, err := session.NewTokenService(session.TokenConfig{
		SigningKey: cfg.SessionSigningKey,
		Issuer:     tokenIssuer,
		Audience:   tokenAudience,
		TTL:        cfg.SessionTTL,
		Clock:      clock,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session tokens")
	}

	publisher, err := alertfeed.New(ctx, alertfeed.Config{
		Sink:   cfg.AlertSink,
		PubSub: alertfeed.PubSubConfig{ProjectID: cfg.PubSubProjectID, Topic: cfg.PubSubTopic},
		Kafka:  alertfeed.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic},
		Logger: log,
	})
	if err != nil {
		log.Fatal().Err(err).Str("sink", cfg.AlertSink).Msg("failed to initialize alert feed")
	}
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close alert feed")
		}
	}()
	log.Info().Str("sink", cfg.AlertSink).Msg("alert feed initialized")

	dash, err := dashboard.NewService(dashboard.Config{
		Weather:   weatherService,
		Sessions:  sessions,
		Player:    audio.NewPlayer(audio.PlayerConfig{Settings: prefsService, Clock: clock, Logger: log}),
		Locations: prefsService,
		Publisher: publisher,
		Clock:     clock,
		Logger:    log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize dashboard")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		RequireTLS:  cfg.RequireTLS,
		Clock:       clock,
		Providers:   providers,
		Weather:     weatherService,
		Sessions:    sessions,
		Tokens:      tokens,
		Dashboard:   dash,
		Preferences: prefsService,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server stopped")
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// newPreferencesRepository opens the configured preferences backend. The
// returned closer releases it.
func newPreferencesRepository(ctx context.Context, cfg config.Config, log zerolog.Logger) (preferences.Repository, io.Closer, error) {
	switch cfg.PreferencesBackend {
	case config.BackendPostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		repo := preferences.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info().
			Str("database", cfg.Database.Redacted()).
			Msg("preferences stored in postgres")
		return repo, closerFunc(func() error { pool.Close(); return nil }), nil

	case config.BackendSQLite:
		repo, err := preferences.NewSQLiteRepository(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("preferences stored in sqlite")
		return repo, repo, nil

	default:
		log.Info().Msg("preferences stored in memory")
		return preferences.NewInMemoryRepository(), closerFunc(func() error { return nil }), nil
	}
}
