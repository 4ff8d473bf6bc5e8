package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliweather/aliweather/internal/weather"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu        sync.Mutex
	callCount int
	queries   []string
	matches   []weather.LocationMatch
	err       error
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) GetSnapshot(_ context.Context, query string) (*weather.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.queries = append(m.queries, query)

	if m.err != nil {
		return nil, m.err
	}

	return &weather.Snapshot{
		Location: weather.Location{Name: query, Country: "Vietnam"},
		Current:  weather.Current{PrecipMM: 12, ConditionText: "Moderate rain"},
	}, nil
}

func (m *mockProvider) SearchLocations(_ context.Context, _ string) ([]weather.LocationMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.matches, nil
}

func (m *mockProvider) getCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockProvider) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func newService(provider weather.Provider, clock clockwork.Clock) *weather.Service {
	return weather.NewService(weather.ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.Nop(),
		Clock:           clock,
		CacheTTL:        10 * time.Minute,
		StaleIfErrorTTL: time.Hour,
	})
}

func TestService_GetSnapshot(t *testing.T) {
	provider := &mockProvider{}
	service := newService(provider, clockwork.NewFakeClock())

	snap, err := service.GetSnapshot(context.Background(), "  Hanoi ")
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, "Hanoi", snap.Location.Name)
	assert.Equal(t, []string{"Hanoi"}, provider.queries)
}

func TestService_GetSnapshot_CachingIsCaseInsensitive(t *testing.T) {
	provider := &mockProvider{}
	service := newService(provider, clockwork.NewFakeClock())

	for _, q := range []string{"Ho Chi Minh", "ho chi minh", "HO  CHI MINH"} {
		_, err := service.GetSnapshot(context.Background(), q)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, provider.getCallCount())
	assert.Equal(t, 1, service.CacheStats().SnapshotEntries)
}

func TestService_GetSnapshot_CacheExpiry(t *testing.T) {
	provider := &mockProvider{}
	clock := clockwork.NewFakeClock()
	service := newService(provider, clock)

	_, err := service.GetSnapshot(context.Background(), "Hue")
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)

	_, err = service.GetSnapshot(context.Background(), "Hue")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_GetSnapshot_EmptyQuery(t *testing.T) {
	service := newService(&mockProvider{}, clockwork.NewFakeClock())

	_, err := service.GetSnapshot(context.Background(), "   ")
	assert.ErrorIs(t, err, weather.ErrEmptyQuery)
}

func TestService_GetSnapshot_ProviderError(t *testing.T) {
	provider := &mockProvider{err: errors.New("api error")}
	service := newService(provider, clockwork.NewFakeClock())

	_, err := service.GetSnapshot(context.Background(), "Hanoi")
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_GetSnapshot_NoDataForLocation(t *testing.T) {
	provider := &mockProvider{err: weather.ErrNoDataForLocation}
	service := newService(provider, clockwork.NewFakeClock())

	_, err := service.GetSnapshot(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, weather.ErrNoDataForLocation)
}

func TestService_GetSnapshot_StaleOnError(t *testing.T) {
	provider := &mockProvider{}
	clock := clockwork.NewFakeClock()
	service := newService(provider, clock)

	first, err := service.GetSnapshot(context.Background(), "Da Nang")
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	provider.setError(errors.New("api error"))

	stale, err := service.GetSnapshot(context.Background(), "Da Nang")
	require.NoError(t, err)
	assert.Same(t, first, stale)

	clock.Advance(2 * time.Hour)

	_, err = service.GetSnapshot(context.Background(), "Da Nang")
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_SearchLocations(t *testing.T) {
	provider := &mockProvider{matches: []weather.LocationMatch{{ID: 1, Name: "Hue"}}}
	service := newService(provider, clockwork.NewFakeClock())

	matches, err := service.SearchLocations(context.Background(), "hue")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	_, err = service.SearchLocations(context.Background(), "")
	assert.ErrorIs(t, err, weather.ErrEmptyQuery)

	provider.setError(errors.New("api error"))
	_, err = service.SearchLocations(context.Background(), "hue")
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := &mockProvider{}
	service := newService(provider, clockwork.NewFakeClock())

	_, err := service.GetSnapshot(context.Background(), "Hanoi")
	require.NoError(t, err)

	service.InvalidateCache()

	_, err = service.GetSnapshot(context.Background(), "Hanoi")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.getCallCount())
}

func TestService_CacheStats(t *testing.T) {
	clock := clockwork.NewFakeClock()
	service := newService(&mockProvider{}, clock)

	_, _ = service.GetSnapshot(context.Background(), "Hanoi")
	clock.Advance(11 * time.Minute)
	_, _ = service.GetSnapshot(context.Background(), "Hue")

	stats := service.CacheStats()
	assert.Equal(t, 2, stats.SnapshotEntries)
	assert.Equal(t, 1, stats.SnapshotFreshEntries)
	assert.Equal(t, "mock", stats.Provider)
}

func TestService_ConcurrentAccess(t *testing.T) {
	provider := &mockProvider{}
	service := newService(provider, clockwork.NewFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.GetSnapshot(context.Background(), "Can Tho")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, provider.getCallCount())
}

type recorder struct {
	requests []string
	errors   int
	hits     int
	misses   int
}

func (r *recorder) RecordRequest(provider, operation string, _ time.Duration, err error) {
	r.requests = append(r.requests, provider+"/"+operation)
	if err != nil {
		r.errors++
	}
}

func (r *recorder) RecordCacheHit(string, string)  { r.hits++ }
func (r *recorder) RecordCacheMiss(string, string) { r.misses++ }

func TestService_RecordsMetrics(t *testing.T) {
	provider := &mockProvider{}
	rec := &recorder{}
	service := weather.NewService(weather.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.Nop(),
		Clock:    clockwork.NewFakeClock(),
		Metrics:  rec,
	})
	ctx := context.Background()

	_, err := service.GetSnapshot(ctx, "Hanoi")
	require.NoError(t, err)
	_, err = service.GetSnapshot(ctx, "Hanoi")
	require.NoError(t, err)

	assert.Equal(t, 1, rec.misses)
	assert.Equal(t, 1, rec.hits)
	assert.Equal(t, []string{"mock/snapshot"}, rec.requests)

	provider.setError(errors.New("boom"))
	_, err = service.SearchLocations(ctx, "Hue")
	require.Error(t, err)
	assert.Equal(t, []string{"mock/snapshot", "mock/search"}, rec.requests)
	assert.Equal(t, 1, rec.errors)
}
