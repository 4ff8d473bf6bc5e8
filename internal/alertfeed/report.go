// Package alertfeed publishes flood risk reports to downstream consumers.
//
// A Report is emitted whenever a refresh produces at least one alert.
// Publishers exist for structured logs, Google Cloud Pub/Sub and Kafka; the
// sink is chosen at startup with ALERT_SINK.
package alertfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aliweather/aliweather/internal/flood"
	"github.com/aliweather/aliweather/internal/weather"
)

// Report origins.
const (
	OriginWorker  = "worker"
	OriginSession = "session"
)

// Report is a published flood risk evaluation for one location.
type Report struct {
	ID            string         `json:"id"`
	Origin        string         `json:"origin"`
	Query         string         `json:"query"`
	Location      string         `json:"location"`
	Region        string         `json:"region,omitempty"`
	Country       string         `json:"country,omitempty"`
	Headline      flood.Severity `json:"headline"`
	HeadlineLabel string         `json:"headlineLabel"`
	Alerts        []flood.Alert  `json:"alerts"`
	EvaluatedAt   time.Time      `json:"evaluatedAt"`
}

// Publisher delivers reports to a sink.
type Publisher interface {
	Publish(ctx context.Context, r Report) error
	Close() error
}

// NewReport builds a report from a prioritized evaluation of snap.
func NewReport(origin, query string, snap *weather.Snapshot, p flood.Prioritized, evaluatedAt time.Time) Report {
	return Report{
		ID:            uuid.NewString(),
		Origin:        origin,
		Query:         query,
		Location:      snap.Location.Name,
		Region:        snap.Location.Region,
		Country:       snap.Location.Country,
		Headline:      p.Headline,
		HeadlineLabel: flood.LabelFor(p.Headline).Headline(),
		Alerts:        p.Alerts,
		EvaluatedAt:   evaluatedAt,
	}
}

// Attributes returns the routing attributes carried alongside the body.
func (r Report) Attributes() map[string]string {
	return map[string]string{
		"report_id":    r.ID,
		"origin":       r.Origin,
		"location":     r.Location,
		"severity":     r.Headline.String(),
		"alert_count":  fmt.Sprint(len(r.Alerts)),
		"evaluated_at": r.EvaluatedAt.UTC().Format(time.RFC3339),
	}
}

func encode(r Report) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("serialize risk report: %w", err)
	}
	return data, nil
}
