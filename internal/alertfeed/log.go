package alertfeed

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/flood"
)

var _ Publisher = (*LogPublisher)(nil)

// LogPublisher writes reports to the structured log.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a publisher that logs every report.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the report at a level matching its headline.
func (p *LogPublisher) Publish(_ context.Context, r Report) error {
	event := p.logger.Info()
	if r.Headline >= flood.Danger {
		event = p.logger.Warn()
	}

	titles := make([]string, 0, len(r.Alerts))
	for _, a := range r.Alerts {
		titles = append(titles, a.Title)
	}

	event.
		Str("report_id", r.ID).
		Str("origin", r.Origin).
		Str("location", r.Location).
		Str("severity", r.Headline.String()).
		Strs("alerts", titles).
		Msg("flood risk report")
	return nil
}

// Close is a no-op.
func (p *LogPublisher) Close() error { return nil }
