package weather

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetSnapshot fetches current conditions, forecast and alerts for a
	// location query (a place name or "lat,lon").
	GetSnapshot(ctx context.Context, query string) (*Snapshot, error)

	// SearchLocations returns locations matching a free-text query.
	SearchLocations(ctx context.Context, query string) ([]LocationMatch, error)

	// Name returns the provider name for logging.
	Name() string
}

// MetricsRecorder records provider call metrics.
type MetricsRecorder interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Clock is the time source (default: real clock).
	Clock clockwork.Clock

	// CacheTTL is how long to cache snapshots (default: 10 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration

	// Metrics is optional.
	Metrics MetricsRecorder
}

const (
	opSnapshot = "snapshot"
	opSearch   = "search"
)

// Service provides weather snapshots with caching.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	clock           clockwork.Clock
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	metrics         MetricsRecorder

	mu              sync.RWMutex
	snapshotCache   map[string]*cachedSnapshot
	lastCleanup     time.Time
	cleanupInterval time.Duration
}

type cachedSnapshot struct {
	snapshot  *Snapshot
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 1 * time.Hour
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		clock:           clock,
		cacheTTL:        cacheTTL,
		staleIfErrorTTL: staleIfErrorTTL,
		metrics:         cfg.Metrics,
		snapshotCache:   make(map[string]*cachedSnapshot),
		cleanupInterval: 5 * time.Minute,
	}
}

// ProviderName returns the name of the underlying provider.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// GetSnapshot returns the weather snapshot for a location query.
// Uses cached data if available and not expired.
func (s *Service) GetSnapshot(ctx context.Context, query string) (*Snapshot, error) {
	cacheKey := normalizeQuery(query)
	if cacheKey == "" {
		return nil, ErrEmptyQuery
	}

	s.mu.RLock()
	if cached, ok := s.snapshotCache[cacheKey]; ok && s.clock.Now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		if s.metrics != nil {
			s.metrics.RecordCacheHit(s.provider.Name(), opSnapshot)
		}
		return cached.snapshot, nil
	}
	s.mu.RUnlock()

	if s.metrics != nil {
		s.metrics.RecordCacheMiss(s.provider.Name(), opSnapshot)
	}
	return s.fetchSnapshot(ctx, query, cacheKey)
}

// SearchLocations proxies a location search to the provider. Results are not cached.
func (s *Service) SearchLocations(ctx context.Context, query string) ([]LocationMatch, error) {
	if normalizeQuery(query) == "" {
		return nil, ErrEmptyQuery
	}

	start := s.clock.Now()
	matches, err := s.provider.SearchLocations(ctx, strings.TrimSpace(query))
	s.recordRequest(opSearch, start, err)
	if errors.Is(err, ErrNoDataForLocation) {
		return []LocationMatch{}, nil
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("query", query).
			Msg("failed to search locations")
		return nil, ErrProviderUnavailable
	}
	return matches, nil
}

// fetchSnapshot fetches a snapshot from the provider and updates the cache.
func (s *Service) fetchSnapshot(ctx context.Context, query, cacheKey string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check cache
	if cached, ok := s.snapshotCache[cacheKey]; ok && s.clock.Now().Before(cached.expiresAt) {
		return cached.snapshot, nil
	}

	s.logger.Debug().
		Str("query", query).
		Str("provider", s.provider.Name()).
		Msg("fetching snapshot from provider")

	start := s.clock.Now()
	snap, err := s.provider.GetSnapshot(ctx, strings.TrimSpace(query))
	s.recordRequest(opSnapshot, start, err)
	if errors.Is(err, ErrNoDataForLocation) {
		return nil, ErrNoDataForLocation
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("query", query).
			Msg("failed to fetch snapshot")

		if cached, ok := s.snapshotCache[cacheKey]; ok {
			if s.clock.Now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
				s.logger.Warn().
					Time("fetched_at", cached.fetchedAt).
					Msg("serving stale snapshot due to provider error")
				return cached.snapshot, nil
			}
		}

		return nil, ErrProviderUnavailable
	}
	if snap == nil {
		return nil, ErrNoDataForLocation
	}

	now := s.clock.Now()
	s.snapshotCache[cacheKey] = &cachedSnapshot{
		snapshot:  snap,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}

	s.cleanupIfNeeded()

	return snap, nil
}

func (s *Service) recordRequest(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRequest(s.provider.Name(), operation, s.clock.Since(start), err)
}

// cleanupIfNeeded removes entries past the stale window once per cleanup interval.
func (s *Service) cleanupIfNeeded() {
	now := s.clock.Now()
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}

	s.lastCleanup = now
	expired := 0

	for key, cached := range s.snapshotCache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.snapshotCache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_entries", expired).
			Msg("cleaned up expired snapshot cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshotCache = make(map[string]*cachedSnapshot)
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	fresh := 0
	for _, c := range s.snapshotCache {
		if now.Before(c.expiresAt) {
			fresh++
		}
	}

	return CacheStats{
		SnapshotEntries:      len(s.snapshotCache),
		SnapshotFreshEntries: fresh,
		Provider:             s.provider.Name(),
	}
}

// CacheStats contains cache statistics.
type CacheStats struct {
	SnapshotEntries      int
	SnapshotFreshEntries int
	Provider             string
}

// normalizeQuery folds a location query into a cache key.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
