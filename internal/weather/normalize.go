package weather

import (
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	// DefaultIconCode is the WeatherAPI.com code for "Sunny", used when an icon is missing.
	DefaultIconCode = "113"

	// HourlyWindow is how many hourly points a snapshot carries.
	HourlyWindow = 24

	dateLayout      = "2006-01-02"
	localTimeLayout = "2006-01-02 15:04"
)

var iconCodePattern = regexp.MustCompile(`/(\d+)\.png`)

// Normalize converts a raw provider payload into a Snapshot.
// It never fails: missing sections become zero values or empty slices,
// negative precipitation and wind are clamped to zero, and forecast days
// are ordered chronologically.
func Normalize(p *Payload, fetchedAt time.Time) Snapshot {
	snap := Snapshot{
		Current:        Current{IconCode: DefaultIconCode},
		Hourly:         []HourlyPoint{},
		ForecastDays:   []ForecastDay{},
		UpstreamAlerts: []UpstreamAlert{},
		FetchedAt:      fetchedAt,
	}
	if p == nil {
		return snap
	}

	tz := time.UTC
	if p.Location != nil {
		tz = loadZone(p.Location.TzID)
		snap.Location = normalizeLocation(p.Location, tz)
	}

	if p.Current != nil {
		snap.Current = normalizeCurrent(p.Current)
	}

	if p.Forecast != nil {
		snap.ForecastDays = normalizeDays(p.Forecast.ForecastDay, tz)
		snap.Hourly = normalizeHourly(p.Forecast.ForecastDay, snap.Location.LocalTime, tz)
	}

	if p.Alerts != nil {
		for _, a := range p.Alerts.Alert {
			snap.UpstreamAlerts = append(snap.UpstreamAlerts, UpstreamAlert{
				Event:       strings.TrimSpace(a.Event),
				Severity:    strings.TrimSpace(a.Severity),
				Headline:    strings.TrimSpace(a.Headline),
				Description: strings.TrimSpace(a.Desc),
			})
		}
	}

	return snap
}

func normalizeLocation(l *PayloadLocation, tz *time.Location) Location {
	loc := Location{
		Name:     strings.TrimSpace(l.Name),
		Region:   strings.TrimSpace(l.Region),
		Country:  strings.TrimSpace(l.Country),
		Lat:      l.Lat.Float(),
		Lon:      l.Lon.Float(),
		TimeZone: l.TzID,
	}

	switch {
	case l.LocalTimeEpoch > 0:
		loc.LocalTime = time.Unix(int64(l.LocalTimeEpoch), 0).In(tz)
	case l.LocalTime != "":
		if t, err := time.ParseInLocation(localTimeLayout, l.LocalTime, tz); err == nil {
			loc.LocalTime = t
		}
	}

	return loc
}

func normalizeCurrent(c *PayloadCurrent) Current {
	cur := Current{
		TemperatureC: c.TempC.Float(),
		FeelsLikeC:   c.FeelsLikeC.Float(),
		PrecipMM:     nonNegative(c.PrecipMM.Float()),
		WindKph:      nonNegative(c.WindKph.Float()),
		Humidity:     clamp(c.Humidity.Float(), 0, 100),
		UV:           nonNegative(c.UV.Float()),
		IsDay:        c.IsDay.Float() == 1,
		IconCode:     DefaultIconCode,
	}

	if c.Condition != nil {
		cur.ConditionText = strings.TrimSpace(c.Condition.Text)
		cur.IconCode = ExtractIconCode(c.Condition.Icon)
	}

	if c.AirQuality != nil {
		idx := int(c.AirQuality.USEPAIndex.Float())
		if idx >= 1 && idx <= 6 {
			cur.AirQualityEPA = idx
		}
	}

	return cur
}

func normalizeDays(days []PayloadForecastDay, tz *time.Location) []ForecastDay {
	out := make([]ForecastDay, 0, len(days))

	for _, d := range days {
		day := ForecastDay{IconCode: DefaultIconCode}
		if t, err := time.ParseInLocation(dateLayout, d.Date, tz); err == nil {
			day.Date = t
		}

		if d.Day != nil {
			day.TotalPrecipMM = nonNegative(d.Day.TotalPrecipMM.Float())
			day.ChanceOfRainPct = clamp(d.Day.DailyChanceOfRain.Float(), 0, 100)
			day.MaxWindKph = nonNegative(d.Day.MaxWindKph.Float())
			day.MinTempC = d.Day.MinTempC.Float()
			day.MaxTempC = d.Day.MaxTempC.Float()
			day.AvgTempC = d.Day.AvgTempC.Float()
			day.AvgHumidity = clamp(d.Day.AvgHumidity.Float(), 0, 100)
			day.UV = nonNegative(d.Day.UV.Float())
			if d.Day.Condition != nil {
				day.ConditionText = strings.TrimSpace(d.Day.Condition.Text)
				day.IconCode = ExtractIconCode(d.Day.Condition.Icon)
			}
		}

		out = append(out, day)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	return out
}

// normalizeHourly takes the remaining hours of the first forecast day and
// tops up from the second day until HourlyWindow points are collected.
func normalizeHourly(days []PayloadForecastDay, localTime time.Time, tz *time.Location) []HourlyPoint {
	out := make([]HourlyPoint, 0, HourlyWindow)
	if len(days) == 0 {
		return out
	}

	currentHour := 0
	if !localTime.IsZero() {
		currentHour = localTime.Hour()
	}

	for i, h := range days[0].Hour {
		if i < currentHour {
			continue
		}
		if len(out) == HourlyWindow {
			return out
		}
		out = append(out, normalizeHour(h, tz))
	}

	if len(days) > 1 {
		for _, h := range days[1].Hour {
			if len(out) == HourlyWindow {
				break
			}
			out = append(out, normalizeHour(h, tz))
		}
	}

	return out
}

func normalizeHour(h PayloadHour, tz *time.Location) HourlyPoint {
	pt := HourlyPoint{
		TemperatureC: h.TempC.Float(),
		FeelsLikeC:   h.FeelsLikeC.Float(),
		ChanceOfRain: clamp(h.ChanceOfRain.Float(), 0, 100) / 100,
		WindKph:      nonNegative(h.WindKph.Float()),
		Humidity:     clamp(h.Humidity.Float(), 0, 100),
		IconCode:     DefaultIconCode,
	}

	switch {
	case h.TimeEpoch > 0:
		pt.Time = time.Unix(int64(h.TimeEpoch), 0).In(tz)
	case h.Time != "":
		if t, err := time.ParseInLocation(localTimeLayout, h.Time, tz); err == nil {
			pt.Time = t
		}
	}

	if h.Condition != nil {
		pt.ConditionText = strings.TrimSpace(h.Condition.Text)
		pt.IconCode = ExtractIconCode(h.Condition.Icon)
	}

	return pt
}

// ExtractIconCode extracts the numeric icon code from a WeatherAPI.com icon
// URL such as //cdn.weatherapi.com/weather/64x64/day/116.png.
func ExtractIconCode(iconURL string) string {
	if iconURL == "" {
		return DefaultIconCode
	}
	m := iconCodePattern.FindStringSubmatch(iconURL)
	if m == nil {
		return DefaultIconCode
	}
	return m[1]
}

// IconURL builds a WeatherAPI.com CDN icon URL for a code.
func IconURL(code, size string) string {
	if strings.HasPrefix(code, "http") || strings.HasPrefix(code, "//") {
		return code
	}
	if code == "" {
		code = DefaultIconCode
	}
	if size == "" {
		size = "64x64"
	}
	return "https://cdn.weatherapi.com/weather/" + size + "/day/" + code + ".png"
}

func loadZone(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return tz
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	default:
		return v
	}
}
