package weather

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Payload mirrors the WeatherAPI.com forecast.json response. Every field is
// optional; absent or malformed values decode to zero and Normalize fills the
// gaps.
type Payload struct {
	Location *PayloadLocation `json:"location"`
	Current  *PayloadCurrent  `json:"current"`
	Forecast *PayloadForecast `json:"forecast"`
	Alerts   *PayloadAlerts   `json:"alerts"`
}

// PayloadLocation is the location block of the provider response.
type PayloadLocation struct {
	Name           string `json:"name"`
	Region         string `json:"region"`
	Country        string `json:"country"`
	Lat            Number `json:"lat"`
	Lon            Number `json:"lon"`
	TzID           string `json:"tz_id"`
	LocalTimeEpoch Number `json:"localtime_epoch"`
	LocalTime      string `json:"localtime"`
}

// PayloadCondition is the nested condition object used throughout the response.
type PayloadCondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
	Code Number `json:"code"`
}

// PayloadCurrent is the current conditions block.
type PayloadCurrent struct {
	TempC      Number             `json:"temp_c"`
	FeelsLikeC Number             `json:"feelslike_c"`
	IsDay      Number             `json:"is_day"`
	Condition  *PayloadCondition  `json:"condition"`
	WindKph    Number             `json:"wind_kph"`
	PrecipMM   Number             `json:"precip_mm"`
	Humidity   Number             `json:"humidity"`
	UV         Number             `json:"uv"`
	AirQuality *PayloadAirQuality `json:"air_quality"`
}

// PayloadAirQuality carries the air quality indices requested with aqi=yes.
type PayloadAirQuality struct {
	USEPAIndex Number `json:"us-epa-index"`
}

// PayloadForecast wraps the forecast days.
type PayloadForecast struct {
	ForecastDay []PayloadForecastDay `json:"forecastday"`
}

// PayloadForecastDay is one day of the forecast with its hourly breakdown.
type PayloadForecastDay struct {
	Date string        `json:"date"`
	Day  *PayloadDay   `json:"day"`
	Hour []PayloadHour `json:"hour"`
}

// PayloadDay holds the daily aggregates.
type PayloadDay struct {
	MaxTempC          Number            `json:"maxtemp_c"`
	MinTempC          Number            `json:"mintemp_c"`
	AvgTempC          Number            `json:"avgtemp_c"`
	MaxWindKph        Number            `json:"maxwind_kph"`
	TotalPrecipMM     Number            `json:"totalprecip_mm"`
	AvgHumidity       Number            `json:"avghumidity"`
	DailyChanceOfRain Number            `json:"daily_chance_of_rain"`
	UV                Number            `json:"uv"`
	Condition         *PayloadCondition `json:"condition"`
}

// PayloadHour is one hourly forecast point.
type PayloadHour struct {
	TimeEpoch    Number            `json:"time_epoch"`
	Time         string            `json:"time"`
	TempC        Number            `json:"temp_c"`
	FeelsLikeC   Number            `json:"feelslike_c"`
	Condition    *PayloadCondition `json:"condition"`
	WindKph      Number            `json:"wind_kph"`
	Humidity     Number            `json:"humidity"`
	ChanceOfRain Number            `json:"chance_of_rain"`
}

// PayloadAlerts wraps the upstream alert list.
type PayloadAlerts struct {
	Alert []PayloadAlert `json:"alert"`
}

// PayloadAlert is one upstream alert.
type PayloadAlert struct {
	Headline string `json:"headline"`
	Severity string `json:"severity"`
	Event    string `json:"event"`
	Desc     string `json:"desc"`
}

// Number is a float64 that decodes leniently: JSON numbers, numeric strings,
// booleans and null are accepted, anything else decodes to zero without error.
type Number float64

// UnmarshalJSON implements json.Unmarshaler for Number.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = 0

	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		return nil
	case bytes.Equal(data, []byte("true")):
		*n = 1
		return nil
	case bytes.Equal(data, []byte("false")):
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*n = parseFinite(s)
		return nil
	}

	*n = parseFinite(string(data))
	return nil
}

func parseFinite(s string) Number {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return Number(f)
}

// Float returns the value as float64.
func (n Number) Float() float64 {
	return float64(n)
}
