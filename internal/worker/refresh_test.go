package worker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliweather/aliweather/internal/alertfeed"
	"github.com/aliweather/aliweather/internal/flood"
	"github.com/aliweather/aliweather/internal/weather"
	"github.com/aliweather/aliweather/internal/worker"
)

// stubWeather returns heavy rain for queries in rainy and dry weather otherwise.
type stubWeather struct {
	mu      sync.Mutex
	rainy   map[string]bool
	failing map[string]bool
	queries []string
}

func (s *stubWeather) GetSnapshot(_ context.Context, query string) (*weather.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)

	if s.failing[query] {
		return nil, weather.ErrProviderUnavailable
	}
	snap := &weather.Snapshot{Location: weather.Location{Name: query}}
	if s.rainy[query] {
		snap.Current = weather.Current{PrecipMM: 80, ConditionText: "Heavy rain"}
	}
	return snap, nil
}

type memPublisher struct {
	mu      sync.Mutex
	reports []alertfeed.Report
	err     error
}

func (p *memPublisher) Publish(_ context.Context, r alertfeed.Report) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.reports = append(p.reports, r)
	return nil
}

func (p *memPublisher) Close() error { return nil }

func targets(names ...string) []worker.RefreshTarget {
	out := make([]worker.RefreshTarget, 0, len(names))
	for i, n := range names {
		out = append(out, worker.RefreshTarget{Name: n, Priority: i + 1, Points: []worker.Point{{Name: n}}})
	}
	return out
}

func TestDefaultRefreshConfig(t *testing.T) {
	cfg := worker.DefaultRefreshConfig()

	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.NotEmpty(t, cfg.Targets)
}

func TestDefaultRefreshTargets(t *testing.T) {
	targets := worker.DefaultRefreshTargets()

	// Should have multiple provinces
	assert.GreaterOrEqual(t, len(targets), 5)

	var hue *worker.RefreshTarget
	for i := range targets {
		if targets[i].Name == "Thừa Thiên Huế" {
			hue = &targets[i]
			break
		}
	}
	require.NotNil(t, hue, "Huế should be in targets")
	assert.Equal(t, 1, hue.Priority)
	assert.NotEmpty(t, hue.Points)
}

func TestRefreshConfig_AllPointsByPriority(t *testing.T) {
	cfg := worker.RefreshConfig{
		Targets: []worker.RefreshTarget{
			{Name: "Low", Priority: 3, Points: []worker.Point{{Name: "C"}}},
			{Name: "High", Priority: 1, Points: []worker.Point{{Name: "A"}, {Name: "B"}}},
		},
	}

	points := cfg.AllPoints()
	require.Len(t, points, 3)
	assert.Equal(t, "A", points[0].Name)
	assert.Equal(t, "C", points[2].Name)
	assert.Equal(t, 3, cfg.TotalPoints())
}

func TestPoint_Query(t *testing.T) {
	assert.Equal(t, "Hue", worker.Point{Name: "Hue", Lat: 16.4, Lon: 107.5}.Query())
	assert.Equal(t, "16.4637,107.5909", worker.Point{Lat: 16.4637, Lon: 107.5909}.Query())
}

func TestLoadRefreshTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
targets:
  - name: Huế
    priority: 1
    points:
      - name: Hue
      - lat: 16.4637
        lon: 107.5909
  - name: Đà Nẵng
    priority: 2
    points:
      - name: Da Nang
`), 0o600))

	loaded, err := worker.LoadRefreshTargets(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "Huế", loaded[0].Name)
	require.Len(t, loaded[0].Points, 2)
	assert.Equal(t, "16.4637,107.5909", loaded[0].Points[1].Query())
}

func TestLoadRefreshTargets_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "targets: []\n"},
		{"no points", "targets:\n  - name: Huế\n"},
		{"no name", "targets:\n  - points:\n      - name: Hue\n"},
		{"not yaml", "targets: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "targets.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := worker.LoadRefreshTargets(path)
			assert.ErrorIs(t, err, worker.ErrInvalidTargets)
		})
	}
}

func TestRefreshJob_Run(t *testing.T) {
	source := &stubWeather{rainy: map[string]bool{"Hue": true}, failing: map[string]bool{"Vinh": true}}
	publisher := &memPublisher{}

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    worker.RefreshConfig{Targets: targets("Hue", "Hanoi", "Vinh"), Concurrency: 2, Timeout: time.Second},
		Logger:    zerolog.Nop(),
		Clock:     clockwork.NewFakeClock(),
		Weather:   source,
		Publisher: publisher,
	})

	result := job.Run(context.Background())

	assert.Equal(t, 3, result.TotalPoints)
	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.ReportsPublished)
	assert.Equal(t, 1, result.Headlines[flood.Danger])
	assert.Equal(t, 1, result.Headlines[flood.Info])
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "fetch", result.Errors[0].Stage)

	require.Len(t, publisher.reports, 1)
	report := publisher.reports[0]
	assert.Equal(t, alertfeed.OriginWorker, report.Origin)
	assert.Equal(t, "Hue", report.Query)
	assert.Equal(t, flood.Danger, report.Headline)
}

func TestRefreshJob_PublishFailureIsRecorded(t *testing.T) {
	source := &stubWeather{rainy: map[string]bool{"Hue": true}}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    worker.RefreshConfig{Targets: targets("Hue"), Concurrency: 1},
		Logger:    zerolog.Nop(),
		Weather:   source,
		Publisher: &memPublisher{err: errors.New("topic not found")},
	})

	result := job.Run(context.Background())
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 0, result.ReportsPublished)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "publish", result.Errors[0].Stage)
	assert.Equal(t, int64(1), job.GetMetrics().PublishFailures)
}

func TestRefreshJob_Run_NoWeatherSource(t *testing.T) {
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config: worker.RefreshConfig{Targets: targets("Hanoi"), Concurrency: 1, Timeout: time.Second},
		Logger: zerolog.Nop(),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 1, result.TotalPoints)
	assert.Zero(t, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, result.Headlines)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "fetch", result.Errors[0].Stage)
	assert.Equal(t, worker.ErrNoWeatherSource.Error(), result.Errors[0].Error)

	metrics := job.GetMetrics()
	assert.Zero(t, metrics.SuccessfulRefresh)
	assert.Equal(t, int64(1), metrics.FailedRefreshes)
	assert.ErrorIs(t, job.HealthCheck(context.Background()), worker.ErrNoWeatherSource)
}

func TestRefreshJob_Run_ContextCancellation(t *testing.T) {
	names := make([]string, 50)
	for i := range names {
		names[i] = "point"
	}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:  worker.RefreshConfig{Targets: targets(names...), Concurrency: 3},
		Logger:  zerolog.Nop(),
		Weather: &stubWeather{},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := job.Run(ctx)
	assert.Equal(t, 50, result.Successful+result.Failed)
	assert.Equal(t, 50, result.Failed)
}

func TestRefreshJob_Metrics(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, 10, 1, 8, 0, 0, 0, time.UTC))
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    worker.RefreshConfig{Targets: targets("Hue", "Hanoi"), Concurrency: 1},
		Logger:    zerolog.Nop(),
		Clock:     clock,
		Weather:   &stubWeather{rainy: map[string]bool{"Hue": true}},
		Publisher: &memPublisher{},
	})

	_ = job.Run(context.Background())
	_ = job.Run(context.Background())

	metrics := job.GetMetrics()
	assert.Equal(t, int64(2), metrics.TotalRefreshes)
	assert.Equal(t, int64(4), metrics.SuccessfulRefresh)
	assert.Equal(t, int64(2), metrics.ReportsPublished)
	assert.Equal(t, int64(2), metrics.Headlines[flood.Danger])
	assert.Equal(t, clock.Now(), metrics.LastRefreshAt)

	snapshot := job.MetricsSnapshot()
	assert.Contains(t, snapshot, "total_refreshes")
	assert.Contains(t, snapshot, "reports_published")
	assert.Equal(t, map[string]int64{"danger": 2, "info": 2}, snapshot["headlines"])
}

func TestRefreshJob_RunEvery(t *testing.T) {
	clock := clockwork.NewFakeClock()
	source := &stubWeather{}
	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:  worker.RefreshConfig{Targets: targets("Hanoi"), Concurrency: 1},
		Logger:  zerolog.Nop(),
		Clock:   clock,
		Weather: source,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.RunEvery(ctx, time.Minute)
		close(done)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	require.Eventually(t, func() bool { return job.GetMetrics().TotalRefreshes == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return job.GetMetrics().TotalRefreshes == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
