package flood

// Kind identifies which rule produced an alert.
type Kind string

const (
	KindUpstream         Kind = "upstream"
	KindCurrentRain      Kind = "current_rain"
	KindForecastRain     Kind = "forecast_rain"
	KindStorm            Kind = "storm"
	KindFloodProneRegion Kind = "flood_prone_region"
)

// Alert sources shown under each alert.
const (
	SourceUpstream = "WeatherAPI Alert"
	SourceDetector = "Hệ thống phát hiện tự động"
	SourceForecast = "Dự báo WeatherAPI"
	SourceRegion   = "Dữ liệu khu vực Việt Nam"
)

// Alert is one detected risk. Alerts are values; a new evaluation always
// produces new alerts.
type Alert struct {
	Kind        Kind     `json:"kind"`
	Severity    Severity `json:"severity"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Details     string   `json:"details,omitempty"`
	Source      string   `json:"source"`
}
