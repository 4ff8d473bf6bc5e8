package audio

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/flood"
)

// Status is the outcome of a play request.
type Status string

const (
	// StatusScheduled means Tones is ready to be played.
	StatusScheduled Status = "scheduled"

	// StatusDeferred means the client has not interacted with the page yet,
	// so autoplay would be blocked. Retry once it has.
	StatusDeferred Status = "deferred"

	// StatusMuted means the owner turned alert sounds off.
	StatusMuted Status = "muted"
)

// DefaultVolume matches the gain of the original single-beep alert.
const DefaultVolume = 0.3

// Settings are the owner's sound preferences.
type Settings struct {
	Enabled bool
	Volume  float64
}

// SettingsSource provides sound preferences for an owner.
type SettingsSource interface {
	SoundSettings(ctx context.Context, ownerID string) (Settings, error)
}

// PlayRequest asks for the alert sound for one owner.
type PlayRequest struct {
	OwnerID        string
	UserInteracted bool
}

// PlayResult is what the client should play, if anything.
type PlayResult struct {
	Status   Status          `json:"status"`
	Severity flood.Severity  `json:"severity"`
	Volume   float64         `json:"volume"`
	BaseTime time.Time       `json:"baseTime,omitzero"`
	Pattern  *SoundPattern   `json:"pattern,omitempty"`
	Tones    []ScheduledTone `json:"tones,omitempty"`
}

// PlayerConfig holds configuration for the Player.
type PlayerConfig struct {
	// Settings supplies per-owner preferences. If nil, sound is on at DefaultVolume.
	Settings SettingsSource

	// Clock provides the base time of each schedule (default: real clock).
	Clock clockwork.Clock

	Logger zerolog.Logger
}

// Player decides whether and how an alert sound is played.
type Player struct {
	settings SettingsSource
	clock    clockwork.Clock
	logger   zerolog.Logger
}

// NewPlayer creates a new Player.
func NewPlayer(cfg PlayerConfig) *Player {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Player{
		settings: cfg.Settings,
		clock:    clock,
		logger:   cfg.Logger,
	}
}

// Play returns the schedule for sev scaled to the owner's volume. It never
// fails: unreadable preferences fall back to the defaults.
func (p *Player) Play(ctx context.Context, sev flood.Severity, req PlayRequest) PlayResult {
	settings := p.loadSettings(ctx, req.OwnerID)

	result := PlayResult{
		Severity: sev,
		Volume:   settings.Volume,
	}

	switch {
	case !settings.Enabled:
		result.Status = StatusMuted
		return result
	case !req.UserInteracted:
		result.Status = StatusDeferred
		return result
	}

	pattern := SelectPattern(sev)
	base := p.clock.Now()

	result.Status = StatusScheduled
	result.BaseTime = base
	result.Pattern = &pattern
	result.Tones = scheduleWithGain(pattern, base, settings.Volume)

	p.logger.Debug().
		Str("owner_id", req.OwnerID).
		Str("severity", sev.String()).
		Int("tones", len(result.Tones)).
		Msg("scheduled alert sound")

	return result
}

func (p *Player) loadSettings(ctx context.Context, ownerID string) Settings {
	defaults := Settings{Enabled: true, Volume: DefaultVolume}
	if p.settings == nil {
		return defaults
	}

	s, err := p.settings.SoundSettings(ctx, ownerID)
	if err != nil {
		p.logger.Warn().Err(err).
			Str("owner_id", ownerID).
			Msg("failed to load sound settings, using defaults")
		return defaults
	}

	s.Volume = clampVolume(s.Volume)
	return s
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
