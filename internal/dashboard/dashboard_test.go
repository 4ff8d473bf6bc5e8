package dashboard_test

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

	"github.com/aliweather/aliweather/internal/alertfeed"
	"github.com/aliweather/aliweather/internal/audio"
	"github.com/aliweather/aliweather/internal/dashboard"
	"github.com/aliweather/aliweather/internal/flood"
	"github.com/aliweather/aliweather/internal/lifecycle"
	"github.com/aliweather/aliweather/internal/preferences"
	"github.com/aliweather/aliweather/internal/weather"
)

var now = time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC)

type fakeWeather struct {
	mu      sync.Mutex
	snap    *weather.Snapshot
	err     error
	queries []string
	block   chan struct{}
	entered chan struct{}
}

func (f *fakeWeather) GetSnapshot(_ context.Context, query string) (*weather.Snapshot, error) {
	if f.block != nil {
		f.entered <- struct{}{}
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	s := *f.snap
	s.Location.Name = query
	return &s, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	reports []alertfeed.Report
}

func (p *recordingPublisher) Publish(_ context.Context, r alertfeed.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, r)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func heavyRain() *weather.Snapshot {
	return &weather.Snapshot{
		Location: weather.Location{Country: "Vietnam"},
		Current:  weather.Current{PrecipMM: 60, ConditionText: "Heavy rain"},
	}
}

func dry() *weather.Snapshot {
	return &weather.Snapshot{
		Location: weather.Location{Country: "Vietnam"},
		Current:  weather.Current{PrecipMM: 0, ConditionText: "Sunny"},
	}
}

type fixture struct {
	svc       *dashboard.Service
	weather   *fakeWeather
	sessions  *lifecycle.Registry
	prefs     *preferences.Service
	publisher *recordingPublisher
}

func newFixture(t *testing.T, snap *weather.Snapshot) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(now)
	prefs := preferences.NewService(preferences.ServiceConfig{
		Repository: preferences.NewInMemoryRepository(),
		Logger:     zerolog.Nop(),
		Clock:      clock,
	})
	f := &fixture{
		weather:   &fakeWeather{snap: snap},
		sessions:  lifecycle.NewRegistry(lifecycle.RegistryConfig{Clock: clock}),
		prefs:     prefs,
		publisher: &recordingPublisher{},
	}
	svc, err := dashboard.NewService(dashboard.Config{
		Weather:   f.weather,
		Sessions:  f.sessions,
		Player:    audio.NewPlayer(audio.PlayerConfig{Settings: prefs, Clock: clock, Logger: zerolog.Nop()}),
		Locations: prefs,
		Publisher: f.publisher,
		Clock:     clock,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestRefresh_WithAlerts(t *testing.T) {
	f := newFixture(t, heavyRain())
	id, _ := f.sessions.Create()
	ctx := context.Background()

	result, err := f.svc.Refresh(ctx, dashboard.RefreshRequest{
		SessionID:      id,
		Query:          "Huế",
		UserInteracted: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Huế", result.Query)
	assert.True(t, result.Accepted)
	assert.Equal(t, flood.Danger, result.Risk.Headline)
	assert.Equal(t, 2, result.Risk.Count)
	assert.Equal(t, lifecycle.BannerVisible, result.Lifecycle.State)
	assert.Equal(t, result.Risk.Count, result.Lifecycle.BadgeCount)
	assert.Equal(t, "Mưa to", result.Weather.ConditionVI)

	require.NotNil(t, result.Sound)
	assert.Equal(t, audio.StatusScheduled, result.Sound.Status)
	assert.Equal(t, flood.Danger, result.Sound.Severity)

	require.Len(t, f.publisher.reports, 1)
	assert.Equal(t, alertfeed.OriginSession, f.publisher.reports[0].Origin)

	assert.Equal(t, "Huế", f.prefs.LastLocation(ctx, id))
}

func TestRefresh_NoAlertsKeepsPreviousBatch(t *testing.T) {
	f := newFixture(t, heavyRain())
	id, _ := f.sessions.Create()
	ctx := context.Background()

	first, err := f.svc.Refresh(ctx, dashboard.RefreshRequest{SessionID: id, Query: "Hanoi"})
	require.NoError(t, err)
	require.True(t, first.Accepted)

	f.weather.snap = dry()
	second, err := f.svc.Refresh(ctx, dashboard.RefreshRequest{SessionID: id, Query: "Hanoi"})
	require.NoError(t, err)

	assert.False(t, second.Accepted)
	assert.Nil(t, second.Sound)
	assert.Equal(t, 0, second.Risk.Count)
	assert.Equal(t, first.Lifecycle.Batch, second.Lifecycle.Batch)
	assert.Equal(t, first.Lifecycle.Alerts, second.Lifecycle.Alerts)
	assert.Len(t, f.publisher.reports, 1)
}

func TestRefresh_DefaultsToLastLocation(t *testing.T) {
	f := newFixture(t, dry())
	id, _ := f.sessions.Create()
	ctx := context.Background()

	result, err := f.svc.Refresh(ctx, dashboard.RefreshRequest{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, preferences.DefaultLastLocation, result.Query)

	_, err = f.svc.Refresh(ctx, dashboard.RefreshRequest{SessionID: id, Query: "Da Nang"})
	require.NoError(t, err)
	result, err = f.svc.Refresh(ctx, dashboard.RefreshRequest{SessionID: id, Query: "  "})
	require.NoError(t, err)
	assert.Equal(t, "Da Nang", result.Query)
}

func TestRefresh_DeferredSoundWithoutInteraction(t *testing.T) {
	f := newFixture(t, heavyRain())
	id, _ := f.sessions.Create()

	result, err := f.svc.Refresh(context.Background(), dashboard.RefreshRequest{SessionID: id, Query: "Hanoi"})
	require.NoError(t, err)
	require.NotNil(t, result.Sound)
	assert.Equal(t, audio.StatusDeferred, result.Sound.Status)
	assert.Empty(t, result.Sound.Tones)
}

func TestRefresh_FetchErrorLeavesSessionUntouched(t *testing.T) {
	f := newFixture(t, heavyRain())
	id, controller := f.sessions.Create()
	f.weather.err = weather.ErrProviderUnavailable

	_, err := f.svc.Refresh(context.Background(), dashboard.RefreshRequest{SessionID: id, Query: "Hanoi"})
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
	assert.Equal(t, lifecycle.Idle, controller.State())
	assert.Empty(t, f.publisher.reports)
	assert.Equal(t, preferences.DefaultLastLocation, f.prefs.LastLocation(context.Background(), id))
}

func TestRefresh_UnknownSession(t *testing.T) {
	f := newFixture(t, heavyRain())

	_, err := f.svc.Refresh(context.Background(), dashboard.RefreshRequest{SessionID: "missing", Query: "Hanoi"})
	assert.ErrorIs(t, err, lifecycle.ErrSessionNotFound)
}

func TestRefresh_RejectsConcurrentRefreshForSameSession(t *testing.T) {
	f := newFixture(t, dry())
	f.weather.block = make(chan struct{})
	f.weather.entered = make(chan struct{}, 1)
	id, _ := f.sessions.Create()

	errCh := make(chan error, 1)
	go func() {
		_, err := f.svc.Refresh(context.Background(), dashboard.RefreshRequest{SessionID: id, Query: "Hanoi"})
		errCh <- err
	}()
	<-f.weather.entered

	_, err := f.svc.Refresh(context.Background(), dashboard.RefreshRequest{SessionID: id, Query: "Hanoi"})
	assert.ErrorIs(t, err, dashboard.ErrRefreshInProgress)

	close(f.weather.block)
	require.NoError(t, <-errCh)

	f.weather.block = nil
	_, err = f.svc.Refresh(context.Background(), dashboard.RefreshRequest{SessionID: id, Query: "Hanoi"})
	assert.NoError(t, err)
}

func TestPlaySound(t *testing.T) {
	f := newFixture(t, heavyRain())
	id, controller := f.sessions.Create()
	ctx := context.Background()

	_, err := f.svc.PlaySound(ctx, id, true)
	assert.ErrorIs(t, err, dashboard.ErrNoActiveAlerts)

	_, err = f.svc.Refresh(ctx, dashboard.RefreshRequest{SessionID: id, Query: "Hanoi"})
	require.NoError(t, err)

	result, err := f.svc.PlaySound(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, audio.StatusScheduled, result.Status)
	assert.NotEmpty(t, result.Tones)

	require.NoError(t, controller.Acknowledge())
	_, err = f.svc.PlaySound(ctx, id, true)
	assert.ErrorIs(t, err, dashboard.ErrNoActiveAlerts)
}

func TestPlaySound_Muted(t *testing.T) {
	f := newFixture(t, heavyRain())
	id, _ := f.sessions.Create()
	ctx := context.Background()

	_, err := f.prefs.Set(ctx, id, preferences.KeyAlertSoundEnabled, false)
	require.NoError(t, err)

	result, err := f.svc.Refresh(ctx, dashboard.RefreshRequest{SessionID: id, Query: "Hanoi", UserInteracted: true})
	require.NoError(t, err)
	require.NotNil(t, result.Sound)
	assert.Equal(t, audio.StatusMuted, result.Sound.Status)
}

func TestRefresh_FetchErrorDoesNotLeakInFlightGuard(t *testing.T) {
	f := newFixture(t, heavyRain())
	id, _ := f.sessions.Create()
	f.weather.err = errors.New("boom")

	_, err := f.svc.Refresh(context.Background(), dashboard.RefreshRequest{SessionID: id, Query: "Hanoi"})
	require.Error(t, err)

	f.weather.err = nil
	_, err = f.svc.Refresh(context.Background(), dashboard.RefreshRequest{SessionID: id, Query: "Hanoi"})
	assert.NoError(t, err)
}
