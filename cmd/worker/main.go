// Package main provides the entrypoint for the AliWeather risk refresh worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/alertfeed"
	"github.com/aliweather/aliweather/internal/config"
	"github.com/aliweather/aliweather/internal/provider/resilience"
	"github.com/aliweather/aliweather/internal/telemetry"
	"github.com/aliweather/aliweather/internal/weather"
	"github.com/aliweather/aliweather/internal/weather/weatherapi"
	"github.com/aliweather/aliweather/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aliweather-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting AliWeather worker")

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	refreshCfg := worker.DefaultRefreshConfig()
	if cfg.RefreshTargetsFile != "" {
		targets, loadErr := worker.LoadRefreshTargets(cfg.RefreshTargetsFile)
		if loadErr != nil {
			log.Fatal().Err(loadErr).Str("file", cfg.RefreshTargetsFile).Msg("failed to load refresh targets")
		}
		refreshCfg.Targets = targets
	}

	clock := clockwork.NewRealClock()
	providers := resilience.NewRegistry()
	httpCfg := resilience.DefaultClientConfig(weatherapi.ProviderName)
	httpCfg.Registry = providers

	// Cached snapshots expire before the next tick.
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
		CacheTTL: min(cfg.WeatherCacheTTL, cfg.RefreshInterval/2),
	})

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

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    refreshCfg,
		Logger:    log,
		Clock:     clock,
		Weather:   weatherService,
		Publisher: publisher,
	})
	log.Info().
		Int("targets", len(refreshCfg.Targets)).
		Int("points", refreshCfg.TotalPoints()).
		Dur("interval", cfg.RefreshInterval).
		Msg("refresh job configured")

	go job.RunEvery(ctx, cfg.RefreshInterval)

	// On-demand triggers
	if cfg.PubSubProjectID != "" {
		handler, subErr := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			RefreshJob:       job,
			Logger:           log,
		})
		if subErr != nil {
			log.Fatal().Err(subErr).Msg("failed to initialize pubsub handler")
		}
		defer handler.Close() //nolint:errcheck // best effort on shutdown
		go func() {
			if err := handler.Start(ctx); err != nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	if cfg.KafkaTriggerTopic != "" {
		trigger := worker.NewKafkaTrigger(worker.KafkaTriggerConfig{
			Brokers:    cfg.KafkaBrokers,
			Topic:      cfg.KafkaTriggerTopic,
			GroupID:    cfg.KafkaGroupID,
			RefreshJob: job,
			Logger:     log,
		})
		defer trigger.Close() //nolint:errcheck // best effort on shutdown
		go func() {
			if err := trigger.Start(ctx); err != nil {
				log.Error().Err(err).Msg("kafka trigger stopped")
			}
		}()
	}

	// Worker also exposes health endpoints for Cloud Run
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "OK",
			"version":   Version,
			"providers": providers.OverallStatus(),
		})
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, job.MetricsSnapshot())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
