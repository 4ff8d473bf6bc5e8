package preferences

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/audio"
)

var _ audio.SettingsSource = (*Service)(nil)

// ServiceConfig holds configuration for the preferences service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	Clock      clockwork.Clock
	CacheTTL   time.Duration // How long to cache an owner's preferences in memory
}

// Service reads and writes preferences with caching and fallback to defaults.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	clock    clockwork.Clock
	cacheTTL time.Duration

	mu    sync.RWMutex
	cache map[string]*cachedOwner
}

type cachedOwner struct {
	prefs     map[string]*Preference
	expiresAt time.Time
}

// NewService creates a new preferences service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Minute
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger,
		clock:    clock,
		cacheTTL: cacheTTL,
		cache:    make(map[string]*cachedOwner),
	}
}

// Get returns one preference for an owner, falling back to its default.
func (s *Service) Get(ctx context.Context, ownerID, key string) (*Preference, error) {
	def, ok := Defaults()[key]
	if !ok {
		return nil, ErrUnknownKey
	}

	if pref, ok := s.load(ctx, ownerID)[key]; ok {
		return pref, nil
	}
	return &Preference{OwnerID: ownerID, Key: key, Value: def}, nil
}

// All returns every known preference for an owner in Keys order,
// stored values merged over defaults.
func (s *Service) All(ctx context.Context, ownerID string) []Preference {
	stored := s.load(ctx, ownerID)
	defaults := Defaults()

	result := make([]Preference, 0, len(defaults))
	for _, key := range Keys() {
		if pref, ok := stored[key]; ok {
			result = append(result, *pref)
			continue
		}
		result = append(result, Preference{OwnerID: ownerID, Key: key, Value: defaults[key]})
	}
	return result
}

// Set validates and stores a preference.
func (s *Service) Set(ctx context.Context, ownerID, key string, value any) (*Preference, error) {
	canonical, err := Validate(key, value)
	if err != nil {
		return nil, err
	}

	pref := &Preference{
		OwnerID:   ownerID,
		Key:       key,
		Value:     canonical,
		UpdatedAt: s.clock.Now(),
	}
	if err := s.repo.Set(ctx, pref); err != nil {
		return nil, err
	}

	s.invalidate(ownerID)
	return pref, nil
}

// Forget removes all preferences of an owner.
func (s *Service) Forget(ctx context.Context, ownerID string) error {
	s.invalidate(ownerID)
	return s.repo.DeleteOwner(ctx, ownerID)
}

// SoundSettings returns the alert sound preferences of an owner.
func (s *Service) SoundSettings(ctx context.Context, ownerID string) (audio.Settings, error) {
	prefs := s.load(ctx, ownerID)
	return audio.Settings{
		Enabled: prefs[KeyAlertSoundEnabled].BoolValue(DefaultAlertSoundEnabled),
		Volume:  prefs[KeyAlertVolume].FloatValue(DefaultAlertVolume),
	}, nil
}

// LastLocation returns the last location an owner refreshed.
func (s *Service) LastLocation(ctx context.Context, ownerID string) string {
	return s.load(ctx, ownerID)[KeyLastLocation].StringValue(DefaultLastLocation)
}

// RememberLocation stores query as the owner's last location.
func (s *Service) RememberLocation(ctx context.Context, ownerID, query string) error {
	_, err := s.Set(ctx, ownerID, KeyLastLocation, query)
	return err
}

// InvalidateCache clears all cached preferences.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedOwner)
}

// load returns the stored preferences of an owner. Repository errors are
// logged and treated as "nothing stored".
func (s *Service) load(ctx context.Context, ownerID string) map[string]*Preference {
	now := s.clock.Now()

	s.mu.RLock()
	if c, ok := s.cache[ownerID]; ok && now.Before(c.expiresAt) {
		s.mu.RUnlock()
		return c.prefs
	}
	s.mu.RUnlock()

	prefs, err := s.repo.List(ctx, ownerID)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn().Err(err).
				Str("owner_id", ownerID).
				Msg("failed to load preferences from repository, using defaults")
		}
		return map[string]*Preference{}
	}

	s.mu.Lock()
	s.cache[ownerID] = &cachedOwner{prefs: prefs, expiresAt: now.Add(s.cacheTTL)}
	s.mu.Unlock()

	return prefs
}

func (s *Service) invalidate(ownerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, ownerID)
}
