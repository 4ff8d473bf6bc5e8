package flood

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/aliweather/aliweather/internal/weather"
)

var (
	heavyRainTerms = []string{"heavy rain", "torrential", "mưa to", "mưa lớn"}
	rainTerms      = []string{"rain", "mưa"}
	extremeEvents  = []string{"hurricane", "typhoon", "tornado", "flood", "flash flood"}
)

// Evaluate applies the risk rules to a snapshot in a fixed order and returns
// the alerts they produce, in that order:
//
//  1. upstream alerts, one per provider record
//  2. current heavy rain
//  3. forecast heavy rain, one per qualifying day
//  4. thunderstorm wind
//  5. flood-prone region with rain
//
// Evaluate is pure and never fails; a snapshot that triggers nothing yields
// an empty, non-nil slice.
func Evaluate(s weather.Snapshot) []Alert {
	alerts := make([]Alert, 0, len(s.UpstreamAlerts)+4)

	for _, ua := range s.UpstreamAlerts {
		alerts = append(alerts, upstreamAlert(ua))
	}

	condition := normalizeText(s.Current.ConditionText)

	if a, ok := currentRainAlert(condition, s.Current.PrecipMM); ok {
		alerts = append(alerts, a)
	}

	for i, day := range s.ForecastDays {
		if a, ok := forecastRainAlert(i, day); ok {
			alerts = append(alerts, a)
		}
	}

	if a, ok := stormAlert(condition, s.Current.WindKph, s.Current.PrecipMM); ok {
		alerts = append(alerts, a)
	}

	if a, ok := regionAlert(s.Location.Name, s.Current.PrecipMM); ok {
		alerts = append(alerts, a)
	}

	return alerts
}

// ClassifyUpstream maps a provider alert to a severity. It never returns Info.
func ClassifyUpstream(ua weather.UpstreamAlert) Severity {
	severity := normalizeText(ua.Severity)
	event := normalizeText(ua.Event)

	switch {
	case strings.Contains(severity, "extreme"),
		severity == "severe",
		containsAny(event, extremeEvents):
		return Extreme
	case strings.Contains(event, "warning"):
		return Danger
	default:
		return Warning
	}
}

func upstreamAlert(ua weather.UpstreamAlert) Alert {
	title := ua.Event
	if title == "" {
		title = ua.Headline
	}
	if title == "" {
		title = "Cảnh Báo Thời Tiết"
	}

	return Alert{
		Kind:        KindUpstream,
		Severity:    ClassifyUpstream(ua),
		Title:       title,
		Description: ua.Headline,
		Details:     ua.Description,
		Source:      SourceUpstream,
	}
}

func currentRainAlert(condition string, precip float64) (Alert, bool) {
	if !containsAny(condition, heavyRainTerms) {
		return Alert{}, false
	}

	mm := formatNumber(precip)
	a := Alert{Kind: KindCurrentRain, Source: SourceDetector}

	switch {
	case precip > 100:
		a.Severity = Extreme
		a.Title = "Cảnh Báo Mưa Cực Lớn"
		a.Description = fmt.Sprintf("Đang có mưa cực lớn với lượng mưa %smm. Nguy cơ lũ quét và ngập lụt nghiêm trọng!", mm)
		a.Details = "Lượng mưa vượt ngưỡng khẩn cấp. Di chuyển ngay đến nơi cao và an toàn."
	case precip > 70:
		a.Severity = Danger
		a.Title = "Cảnh Báo Mưa Lớn"
		a.Description = fmt.Sprintf("Đang có mưa rất to với lượng mưa %smm. Nguy cơ lũ lụt rất cao!", mm)
		a.Details = "Lượng mưa vượt xa ngưỡng nguy hiểm. Chuẩn bị sơ tán khi có yêu cầu của chính quyền."
	case precip > 50:
		a.Severity = Danger
		a.Title = "Cảnh Báo Mưa Lớn"
		a.Description = fmt.Sprintf("Đang có mưa rất to với lượng mưa %smm. Nguy cơ lũ lụt cao!", mm)
		a.Details = "Lượng mưa vượt ngưỡng nguy hiểm. Hãy di chuyển đến nơi an toàn."
	case precip > 30:
		a.Severity = Warning
		a.Title = "Cảnh Báo Mưa To"
		a.Description = fmt.Sprintf("Đang có mưa to với lượng mưa %smm. Có nguy cơ ngập úng.", mm)
		a.Details = "Cần theo dõi tình hình và chuẩn bị phương án di chuyển."
	default:
		return Alert{}, false
	}

	return a, true
}

func forecastRainAlert(index int, day weather.ForecastDay) (Alert, bool) {
	precip, chance, wind := day.TotalPrecipMM, day.ChanceOfRainPct, day.MaxWindKph
	date := vietnameseDate(day.Date, index)
	mm, pct := formatNumber(precip), formatNumber(chance)

	a := Alert{Kind: KindForecastRain, Source: SourceForecast}

	switch {
	case precip > 150 && chance > 80 && wind > 80:
		a.Severity = Extreme
		a.Title = "Dự Báo Mưa Bão Cực Lớn"
		a.Description = fmt.Sprintf("%s: Dự báo mưa cực lớn %smm (%s%% khả năng mưa) kèm gió mạnh %.0f km/h", date, mm, pct, math.Round(wind))
		a.Details = "Nguy cơ lũ lụt diện rộng và sạt lở đất. Chuẩn bị sẵn phương án sơ tán."
	case precip > 120 && chance > 75:
		a.Severity = Danger
		a.Title = "Dự Báo Mưa Rất Lớn"
		a.Description = fmt.Sprintf("%s: Dự báo mưa rất lớn với lượng mưa %smm (%s%% khả năng mưa)", date, mm, pct)
		a.Details = "Nguy cơ lũ lụt cao. Hạn chế di chuyển và theo dõi sát tình hình."
	case precip > 80 && chance > 70:
		a.Severity = Warning
		a.Title = "Dự Báo Mưa Lớn"
		a.Description = fmt.Sprintf("%s: Dự báo mưa rất to với lượng mưa %smm (%s%% khả năng mưa)", date, mm, pct)
		a.Details = "Nguy cơ lũ lụt và ngập úng cao trong những ngày tới. Hãy theo dõi sát tình hình."
	default:
		return Alert{}, false
	}

	return a, true
}

func stormAlert(condition string, wind, precip float64) (Alert, bool) {
	if !strings.Contains(condition, "thunder") || !containsAny(condition, rainTerms) {
		return Alert{}, false
	}

	kph := math.Round(wind)
	a := Alert{Kind: KindStorm, Source: SourceDetector}

	switch {
	case wind > 100 && precip > 50:
		a.Severity = Extreme
		a.Title = "Cảnh Báo Bão Nguy Hiểm"
		a.Description = fmt.Sprintf("Đang có giông bão rất mạnh với gió %.0f km/h và lượng mưa %smm", kph, formatNumber(precip))
		a.Details = "Cực kỳ nguy hiểm! Tìm nơi trú ẩn kiên cố ngay lập tức và tránh xa cây cối, cột điện."
	case wind > 70 && precip > 30:
		a.Severity = Danger
		a.Title = "Cảnh Báo Bão"
		a.Description = fmt.Sprintf("Đang có giông bão với gió mạnh %.0f km/h và mưa to", kph)
		a.Details = "Nguy hiểm! Hãy ở trong nhà và tránh xa cửa sổ. Không ra ngoài khi không cần thiết."
	case wind > 50:
		a.Severity = Warning
		a.Title = "Cảnh Báo Giông"
		a.Description = fmt.Sprintf("Đang có giông với gió %.0f km/h", kph)
		a.Details = "Hạn chế ra ngoài và cố định các đồ vật dễ bị gió cuốn."
	default:
		return Alert{}, false
	}

	return a, true
}

func regionAlert(location string, precip float64) (Alert, bool) {
	if precip <= 20 {
		return Alert{}, false
	}
	region, ok := MatchFloodProneRegion(location)
	if !ok {
		return Alert{}, false
	}

	return Alert{
		Kind:        KindFloodProneRegion,
		Severity:    Warning,
		Title:       "Cảnh Báo Khu Vực Dễ Ngập",
		Description: fmt.Sprintf("%s là khu vực thường xuyên có nguy cơ ngập úng. Hiện đang có mưa %smm.", location, formatNumber(precip)),
		Details:     fmt.Sprintf("Khu vực %s dễ bị ảnh hưởng bởi lũ lụt. Hãy chuẩn bị sẵn sàng.", region.Name),
		Source:      SourceRegion,
	}, true
}

var vietnameseWeekdays = [...]string{
	time.Sunday:    "Chủ Nhật",
	time.Monday:    "Thứ Hai",
	time.Tuesday:   "Thứ Ba",
	time.Wednesday: "Thứ Tư",
	time.Thursday:  "Thứ Năm",
	time.Friday:    "Thứ Sáu",
	time.Saturday:  "Thứ Bảy",
}

// vietnameseDate formats a forecast date like "Thứ Tư, 1 tháng 10".
func vietnameseDate(t time.Time, index int) string {
	if t.IsZero() {
		return fmt.Sprintf("Ngày %d", index+1)
	}
	return fmt.Sprintf("%s, %d tháng %d", vietnameseWeekdays[t.Weekday()], t.Day(), int(t.Month()))
}

// normalizeText lowercases and composes text so Vietnamese terms match
// regardless of the provider's Unicode normalization form.
func normalizeText(s string) string {
	return strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
