// Package dashboard runs the per-session refresh cycle: fetch a weather
// snapshot, evaluate and prioritize flood risks, update the session's alert
// lifecycle and decide the alert sound.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aliweather/aliweather/internal/alertfeed"
	"github.com/aliweather/aliweather/internal/audio"
	"github.com/aliweather/aliweather/internal/flood"
	"github.com/aliweather/aliweather/internal/lifecycle"
	"github.com/aliweather/aliweather/internal/weather"
)

const meterName = "github.com/aliweather/aliweather/internal/dashboard"

// Dashboard errors.
var (
	ErrRefreshInProgress = errors.New("refresh already in progress for this session")
	ErrNoActiveAlerts    = errors.New("no active alerts")
)

// SnapshotSource fetches weather snapshots.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, query string) (*weather.Snapshot, error)
}

// LocationStore remembers the last location of each session.
type LocationStore interface {
	LastLocation(ctx context.Context, ownerID string) string
	RememberLocation(ctx context.Context, ownerID, query string) error
}

// Config holds the dependencies of a Service.
type Config struct {
	Weather   SnapshotSource
	Sessions  *lifecycle.Registry
	Player    *audio.Player
	Locations LocationStore

	// Publisher receives a report for every refresh with alerts (optional).
	Publisher alertfeed.Publisher

	Clock  clockwork.Clock
	Logger zerolog.Logger
}

// Service runs refresh cycles for dashboard sessions.
type Service struct {
	weather   SnapshotSource
	sessions  *lifecycle.Registry
	player    *audio.Player
	locations LocationStore
	publisher alertfeed.Publisher
	clock     clockwork.Clock
	logger    zerolog.Logger

	inFlight    sync.Map
	evaluations metric.Int64Counter
}

// RefreshRequest asks for one refresh cycle.
type RefreshRequest struct {
	SessionID string

	// Query is a place name or "lat,lon". Empty means the session's last location.
	Query string

	// UserInteracted reports whether the client can start audio.
	UserInteracted bool
}

// RefreshResult is everything the client needs to re-render after a refresh.
type RefreshResult struct {
	Query     string            `json:"query"`
	Weather   weather.View      `json:"weather"`
	Risk      flood.Prioritized `json:"risk"`
	Accepted  bool              `json:"accepted"`
	Lifecycle lifecycle.View    `json:"lifecycle"`

	// Sound is set only when a new batch was accepted.
	Sound *audio.PlayResult `json:"sound,omitempty"`
}

// NewService creates a dashboard service.
func NewService(cfg Config) (*Service, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	player := cfg.Player
	if player == nil {
		player = audio.NewPlayer(audio.PlayerConfig{Clock: clock, Logger: cfg.Logger})
	}

	evaluations, err := otel.Meter(meterName).Int64Counter(
		"flood.risk.evaluations",
		metric.WithDescription("Number of flood risk evaluations by headline severity"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating evaluation counter: %w", err)
	}

	return &Service{
		weather:     cfg.Weather,
		sessions:    cfg.Sessions,
		player:      player,
		locations:   cfg.Locations,
		publisher:   cfg.Publisher,
		clock:       clock,
		logger:      cfg.Logger,
		evaluations: evaluations,
	}, nil
}

// Refresh runs one fetch, evaluate, prioritize, lifecycle and audio cycle for
// a session. A second refresh for the same session while one is running
// fails with ErrRefreshInProgress. If the fetch fails the session is left
// untouched.
func (s *Service) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResult, error) {
	controller, err := s.sessions.Get(req.SessionID)
	if err != nil {
		return nil, err
	}

	if _, busy := s.inFlight.LoadOrStore(req.SessionID, struct{}{}); busy {
		return nil, ErrRefreshInProgress
	}
	defer s.inFlight.Delete(req.SessionID)

	query := strings.TrimSpace(req.Query)
	if query == "" && s.locations != nil {
		query = s.locations.LastLocation(ctx, req.SessionID)
	}

	logger := s.logger.With().
		Str("session_id", req.SessionID).
		Str("query", query).
		Logger()

	snap, err := s.weather.GetSnapshot(ctx, query)
	if err != nil {
		logger.Warn().Err(err).Msg("refresh fetch failed")
		return nil, err
	}

	alerts := flood.Evaluate(*snap)
	prioritized := flood.Prioritize(alerts)
	s.evaluations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("severity", prioritized.Headline.String()),
		attribute.String("origin", alertfeed.OriginSession),
	))

	result := &RefreshResult{
		Query:    query,
		Weather:  weather.NewView(snap),
		Risk:     prioritized,
		Accepted: controller.Receive(alerts),
	}
	result.Lifecycle = controller.View()

	if result.Accepted {
		sound := s.player.Play(ctx, prioritized.Headline, audio.PlayRequest{
			OwnerID:        req.SessionID,
			UserInteracted: req.UserInteracted,
		})
		result.Sound = &sound
		s.publish(ctx, logger, query, snap, prioritized)
	}

	if s.locations != nil {
		if err := s.locations.RememberLocation(ctx, req.SessionID, query); err != nil {
			logger.Warn().Err(err).Msg("failed to remember location")
		}
	}

	logger.Debug().
		Str("headline", prioritized.Headline.String()).
		Int("alerts", prioritized.Count).
		Bool("accepted", result.Accepted).
		Msg("dashboard refreshed")

	return result, nil
}

// PlaySound replays the alert sound for the session's current batch. It is
// the retry path for a sound deferred until the user interacted with the page.
func (s *Service) PlaySound(ctx context.Context, sessionID string, interacted bool) (audio.PlayResult, error) {
	controller, err := s.sessions.Get(sessionID)
	if err != nil {
		return audio.PlayResult{}, err
	}

	view := controller.View()
	if len(view.Alerts) == 0 || view.State == lifecycle.Idle {
		return audio.PlayResult{}, ErrNoActiveAlerts
	}

	return s.player.Play(ctx, view.Headline, audio.PlayRequest{
		OwnerID:        sessionID,
		UserInteracted: interacted,
	}), nil
}

func (s *Service) publish(ctx context.Context, logger zerolog.Logger, query string, snap *weather.Snapshot, p flood.Prioritized) {
	if s.publisher == nil {
		return
	}
	report := alertfeed.NewReport(alertfeed.OriginSession, query, snap, p, s.clock.Now())
	if err := s.publisher.Publish(ctx, report); err != nil {
		logger.Warn().Err(err).Str("report_id", report.ID).Msg("failed to publish risk report")
	}
}
