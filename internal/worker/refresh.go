package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/alertfeed"
	"github.com/aliweather/aliweather/internal/flood"
	"github.com/aliweather/aliweather/internal/weather"
)

// ErrNoWeatherSource is returned by HealthCheck, and recorded as a fetch
// failure for every point, when no source is configured.
var ErrNoWeatherSource = errors.New("no weather source configured")

// SnapshotSource fetches weather snapshots.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, query string) (*weather.Snapshot, error)
}

// RefreshJob evaluates flood risk for every configured point and publishes
// a report for each point with alerts.
type RefreshJob struct {
	config    RefreshConfig
	logger    zerolog.Logger
	clock     clockwork.Clock
	weather   SnapshotSource
	publisher alertfeed.Publisher

	// Metrics
	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRefreshes    int64
	SuccessfulRefresh int64
	FailedRefreshes   int64
	ReportsPublished  int64
	PublishFailures   int64
	Headlines         map[flood.Severity]int64

	// Timings
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Logger    zerolog.Logger
	Clock     clockwork.Clock
	Weather   SnapshotSource
	Publisher alertfeed.Publisher
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config.Targets = DefaultRefreshTargets()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &RefreshJob{
		config:    config,
		logger:    cfg.Logger,
		clock:     clock,
		weather:   cfg.Weather,
		publisher: cfg.Publisher,
		metrics:   &RefreshMetrics{Headlines: make(map[flood.Severity]int64)},
	}
}

// RefreshResult contains the result of a refresh operation.
type RefreshResult struct {
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	TotalPoints      int
	Successful       int
	Failed           int
	ReportsPublished int
	Headlines        map[flood.Severity]int
	Errors           []RefreshError
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	Point Point
	Stage string
	Error string
}

// Run executes the refresh job for all configured targets.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := j.clock.Now()
	result := &RefreshResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
		Headlines:   make(map[flood.Severity]int),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting risk refresh job")

	// Get all points to refresh
	points := j.config.AllPoints()

	// Create work channels
	pointsChan := make(chan Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	// Start workers
	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, pointsChan, resultsChan)
		}()
	}

	// Send points to workers
	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	// Wait for workers to complete
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	// Collect results
	for pr := range resultsChan {
		if pr.success {
			result.Successful++
			result.Headlines[pr.headline]++
		} else {
			result.Failed++
		}
		if pr.published {
			result.ReportsPublished++
		}
		result.Errors = append(result.Errors, pr.errors...)
	}

	result.EndTime = j.clock.Now()
	result.Duration = result.EndTime.Sub(startTime)

	// Update metrics
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("reports_published", result.ReportsPublished).
		Msg("risk refresh job completed")

	return result
}

// RunEvery runs the job immediately and then on every tick of interval until
// ctx is canceled.
func (j *RefreshJob) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := j.clock.NewTicker(interval)
	defer ticker.Stop()

	j.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			j.Run(ctx)
		}
	}
}

// HealthCheck fetches a single snapshot to verify provider connectivity.
func (j *RefreshJob) HealthCheck(ctx context.Context) error {
	if j.weather == nil {
		return ErrNoWeatherSource
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := j.weather.GetSnapshot(ctx, "Hanoi")
	return err
}

type pointResult struct {
	success   bool
	published bool
	headline  flood.Severity
	errors    []RefreshError
}

func (j *RefreshJob) refreshWorker(ctx context.Context, points <-chan Point, results chan<- pointResult) {
	for point := range points {
		select {
		case <-ctx.Done():
			results <- pointResult{errors: []RefreshError{{Point: point, Stage: "fetch", Error: ctx.Err().Error()}}}
		default:
			results <- j.refreshPoint(ctx, point)
		}
	}
}

func (j *RefreshJob) refreshPoint(ctx context.Context, point Point) pointResult {
	if j.weather == nil {
		return pointResult{errors: []RefreshError{{Point: point, Stage: "fetch", Error: ErrNoWeatherSource.Error()}}}
	}

	// Create timeout context for this point
	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	query := point.Query()
	snap, err := j.weather.GetSnapshot(pointCtx, query)
	if err != nil {
		return pointResult{errors: []RefreshError{{Point: point, Stage: "fetch", Error: err.Error()}}}
	}

	prioritized := flood.Prioritize(flood.Evaluate(*snap))
	result := pointResult{success: true, headline: prioritized.Headline}

	if prioritized.Count == 0 || j.publisher == nil {
		return result
	}

	report := alertfeed.NewReport(alertfeed.OriginWorker, query, snap, prioritized, j.clock.Now())
	if err := j.publisher.Publish(pointCtx, report); err != nil {
		j.logger.Warn().Err(err).
			Str("query", query).
			Msg("failed to publish risk report")
		result.errors = append(result.errors, RefreshError{Point: point, Stage: "publish", Error: err.Error()})
		return result
	}

	result.published = true
	return result
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRefreshes++
	j.metrics.SuccessfulRefresh += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.ReportsPublished += int64(result.ReportsPublished)
	for _, e := range result.Errors {
		if e.Stage == "publish" {
			j.metrics.PublishFailures++
		}
	}
	for sev, n := range result.Headlines {
		j.metrics.Headlines[sev] += int64(n)
	}
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	headlines := make(map[flood.Severity]int64, len(j.metrics.Headlines))
	for k, v := range j.metrics.Headlines {
		headlines[k] = v
	}

	return RefreshMetrics{
		TotalRefreshes:      j.metrics.TotalRefreshes,
		SuccessfulRefresh:   j.metrics.SuccessfulRefresh,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		ReportsPublished:    j.metrics.ReportsPublished,
		PublishFailures:     j.metrics.PublishFailures,
		Headlines:           headlines,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	headlines := make(map[string]int64, len(m.Headlines))
	for sev, n := range m.Headlines {
		headlines[sev.String()] = n
	}
	return map[string]interface{}{
		"total_refreshes":       m.TotalRefreshes,
		"successful_refreshes":  m.SuccessfulRefresh,
		"failed_refreshes":      m.FailedRefreshes,
		"reports_published":     m.ReportsPublished,
		"publish_failures":      m.PublishFailures,
		"headlines":             headlines,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
