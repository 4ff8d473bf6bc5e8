package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNoDataForLocation   = errors.New("no weather data for location")
	ErrEmptyQuery          = errors.New("location query is required")
)

// Snapshot is one fetched weather payload for a single location, normalized
// into the canonical shape consumed by risk evaluation. A Snapshot is never
// mutated after Normalize returns it.
type Snapshot struct {
	Location       Location        `json:"location"`
	Current        Current         `json:"current"`
	Hourly         []HourlyPoint   `json:"hourly"`
	ForecastDays   []ForecastDay   `json:"forecastDays"`
	UpstreamAlerts []UpstreamAlert `json:"upstreamAlerts"`
	FetchedAt      time.Time       `json:"fetchedAt"`
}

// Location identifies where a snapshot was taken.
type Location struct {
	Name      string    `json:"name"`
	Region    string    `json:"region"`
	Country   string    `json:"country"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	TimeZone  string    `json:"timeZone,omitempty"`
	LocalTime time.Time `json:"localTime"`
}

// Current holds the conditions at fetch time.
type Current struct {
	TemperatureC  float64 `json:"temperatureC"`
	FeelsLikeC    float64 `json:"feelsLikeC"`
	ConditionText string  `json:"conditionText"`
	IconCode      string  `json:"iconCode"`
	PrecipMM      float64 `json:"precipMm"`
	WindKph       float64 `json:"windKph"`
	Humidity      float64 `json:"humidity"`
	UV            float64 `json:"uv"`
	IsDay         bool    `json:"isDay"`

	// AirQualityEPA is the US EPA index (1-6), 0 when unavailable.
	AirQualityEPA int `json:"airQualityEpa,omitempty"`
}

// HourlyPoint is one hour of the short-range forecast.
type HourlyPoint struct {
	Time          time.Time `json:"time"`
	TemperatureC  float64   `json:"temperatureC"`
	FeelsLikeC    float64   `json:"feelsLikeC"`
	ConditionText string    `json:"conditionText"`
	IconCode      string    `json:"iconCode"`
	ChanceOfRain  float64   `json:"chanceOfRain"` // 0-1
	WindKph       float64   `json:"windKph"`
	Humidity      float64   `json:"humidity"`
}

// ForecastDay is the daily aggregate for one forecast date.
type ForecastDay struct {
	Date            time.Time `json:"date"`
	TotalPrecipMM   float64   `json:"totalPrecipMm"`
	ChanceOfRainPct float64   `json:"chanceOfRainPct"` // 0-100
	MaxWindKph      float64   `json:"maxWindKph"`
	MinTempC        float64   `json:"minTempC"`
	MaxTempC        float64   `json:"maxTempC"`
	AvgTempC        float64   `json:"avgTempC"`
	AvgHumidity     float64   `json:"avgHumidity"`
	UV              float64   `json:"uv"`
	ConditionText   string    `json:"conditionText"`
	IconCode        string    `json:"iconCode"`
}

// UpstreamAlert is an alert record as emitted by the weather provider.
type UpstreamAlert struct {
	Event       string `json:"event"`
	Severity    string `json:"severity"`
	Headline    string `json:"headline"`
	Description string `json:"description"`
}

// LocationMatch is a single result of a location search.
type LocationMatch struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Region  string  `json:"region"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}
