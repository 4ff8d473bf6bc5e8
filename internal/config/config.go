// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aliweather/aliweather/internal/database"
)

// Preferences backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Alert sinks.
const (
	SinkLog    = "log"
	SinkPubSub = "pubsub"
	SinkKafka  = "kafka"
)

// DevSigningKey is used when SESSION_SIGNING_KEY is unset outside production.
const DevSigningKey = "local-dev-session-key-change-in-production"

// ErrInvalidConfig is returned when an environment value cannot be used.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete service configuration.
type Config struct {
	Port         string
	Env          string
	RequireTLS   bool
	OTelEnabled  bool
	OTLPEndpoint string

	WeatherAPIKey     string
	WeatherAPIBaseURL string
	ForecastDays      int
	WeatherCacheTTL   time.Duration

	PreferencesBackend string
	SQLitePath         string
	Database           database.Config

	SessionSigningKey string
	SessionTTL        time.Duration

	AlertSink          string
	PubSubProjectID    string
	PubSubTopic        string
	PubSubSubscription string
	KafkaBrokers       []string
	KafkaTopic         string
	KafkaTriggerTopic  string
	KafkaGroupID       string

	RefreshInterval    time.Duration
	RefreshTargetsFile string
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// UsingDevSigningKey reports whether the insecure development key is in use.
func (c Config) UsingDevSigningKey() bool {
	return c.SessionSigningKey == DevSigningKey
}

// FromEnv reads the configuration from the environment. A .env file in the
// working directory is loaded first when present; real environment variables
// win over it.
func FromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("%w: loading .env: %v", ErrInvalidConfig, err)
	}

	p := &parser{}
	cfg := Config{
		Port:         getEnvOrDefault("APP_PORT", "8080"),
		Env:          getEnvOrDefault("APP_ENV", "development"),
		RequireTLS:   os.Getenv("REQUIRE_TLS") == "true",
		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		WeatherAPIKey:     os.Getenv("WEATHERAPI_KEY"),
		WeatherAPIBaseURL: getEnvOrDefault("WEATHERAPI_BASE_URL", "https://api.weatherapi.com/v1"),
		ForecastDays:      p.int("FORECAST_DAYS", 7),
		WeatherCacheTTL:   p.duration("WEATHER_CACHE_TTL", 10*time.Minute),

		PreferencesBackend: strings.ToLower(getEnvOrDefault("PREFERENCES_BACKEND", BackendMemory)),
		SQLitePath:         getEnvOrDefault("SQLITE_PATH", "aliweather.db"),
		Database:           database.ConfigFromEnv(),

		SessionSigningKey: os.Getenv("SESSION_SIGNING_KEY"),
		SessionTTL:        p.duration("SESSION_TTL", 12*time.Hour),

		AlertSink:          strings.ToLower(getEnvOrDefault("ALERT_SINK", SinkLog)),
		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:        getEnvOrDefault("PUBSUB_TOPIC", "flood-alerts"),
		PubSubSubscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "risk-refresh-worker"),
		KafkaBrokers:       splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:         getEnvOrDefault("KAFKA_TOPIC", "flood-alerts"),
		KafkaTriggerTopic:  os.Getenv("KAFKA_TRIGGER_TOPIC"),
		KafkaGroupID:       getEnvOrDefault("KAFKA_GROUP_ID", "aliweather-worker"),

		RefreshInterval:    p.duration("REFRESH_INTERVAL", 60*time.Second),
		RefreshTargetsFile: os.Getenv("REFRESH_TARGETS_FILE"),
	}
	if p.err != nil {
		return Config{}, p.err
	}

	if cfg.SessionSigningKey == "" && !cfg.IsProduction() {
		cfg.SessionSigningKey = DevSigningKey
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.PreferencesBackend {
	case BackendMemory, BackendPostgres, BackendSQLite:
	default:
		return fmt.Errorf("%w: PREFERENCES_BACKEND %q", ErrInvalidConfig, c.PreferencesBackend)
	}

	switch c.AlertSink {
	case SinkLog:
	case SinkPubSub:
		if c.PubSubProjectID == "" {
			return fmt.Errorf("%w: PUBSUB_PROJECT_ID is required for the pubsub sink", ErrInvalidConfig)
		}
	case SinkKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("%w: KAFKA_BROKERS is required for the kafka sink", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: ALERT_SINK %q", ErrInvalidConfig, c.AlertSink)
	}

	if c.KafkaTriggerTopic != "" && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("%w: KAFKA_BROKERS is required for KAFKA_TRIGGER_TOPIC", ErrInvalidConfig)
	}
	if c.ForecastDays < 1 || c.ForecastDays > 14 {
		return fmt.Errorf("%w: FORECAST_DAYS must be between 1 and 14", ErrInvalidConfig)
	}
	if c.SessionSigningKey == "" {
		return fmt.Errorf("%w: SESSION_SIGNING_KEY is required in production", ErrInvalidConfig)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("%w: REFRESH_INTERVAL must be positive", ErrInvalidConfig)
	}
	return nil
}

// parser records the first malformed value.
type parser struct {
	err error
}

func (p *parser) int(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, raw)
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q is not a duration", ErrInvalidConfig, key, raw)
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
