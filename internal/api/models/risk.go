package models

import (
	"time"

	"github.com/aliweather/aliweather/internal/audio"
	"github.com/aliweather/aliweather/internal/flood"
	"github.com/aliweather/aliweather/internal/lifecycle"
	"github.com/aliweather/aliweather/internal/weather"
)

// RiskEvaluation is the result of evaluating one weather payload.
type RiskEvaluation struct {
	Headline      flood.Severity `json:"headline"`
	HeadlineLabel string         `json:"headlineLabel"`
	DisplayAlert  *flood.Alert   `json:"displayAlert"`
	Alerts        []flood.Alert  `json:"alerts"`
	Count         int            `json:"count"`
	Labels        []flood.Label  `json:"labels"`
}

// NewRiskEvaluation builds the response for a prioritized batch.
func NewRiskEvaluation(p flood.Prioritized) RiskEvaluation {
	return RiskEvaluation{
		Headline:      p.Headline,
		HeadlineLabel: flood.LabelFor(p.Headline).Headline(),
		DisplayAlert:  p.DisplayAlert,
		Alerts:        p.Alerts,
		Count:         p.Count,
		Labels:        flood.Labels(),
	}
}

// SafetyTips lists the advice shown under an alert of one severity.
type SafetyTips struct {
	Severity flood.Severity `json:"severity"`
	Label    flood.Label    `json:"label"`
	Tips     []string       `json:"tips"`
}

// LabelList wraps the severity label table.
type LabelList struct {
	Items []flood.Label `json:"items"`
}

// LocationList wraps location search results.
type LocationList struct {
	Items []weather.LocationMatch `json:"items"`
}

// AudioPattern is a sound pattern with a schedule starting at BaseTime.
type AudioPattern struct {
	Pattern  audio.SoundPattern    `json:"pattern"`
	BaseTime time.Time             `json:"baseTime"`
	Tones    []audio.ScheduledTone `json:"tones"`
}

// SessionCreated is returned by POST /v1/sessions.
type SessionCreated struct {
	SessionID string         `json:"sessionId"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	Alerts    lifecycle.View `json:"alerts"`
}

// AlertEventRequest applies a user action to the session's alert lifecycle.
type AlertEventRequest struct {
	Event string `json:"event"`
}

// RefreshRequest starts a dashboard refresh cycle.
type RefreshRequest struct {
	Query      string `json:"query"`
	Interacted bool   `json:"interacted"`
}

// PlaySoundRequest retries the alert sound, typically after a deferred play.
type PlaySoundRequest struct {
	Interacted bool `json:"interacted"`
}

// PreferenceUpdate is the body of PUT /v1/preferences/{key}.
type PreferenceUpdate struct {
	Value any `json:"value"`
}
