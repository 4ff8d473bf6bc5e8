package weather

import "strings"

// conditionTranslations maps WeatherAPI.com condition texts to Vietnamese.
var conditionTranslations = map[string]string{
	"sunny":         "Nắng",
	"clear":         "Quang đãng",
	"partly cloudy": "Có mây",
	"cloudy":        "Nhiều mây",
	"overcast":      "U ám",

	"patchy rain possible":          "Có thể có mưa rải rác",
	"patchy rain nearby":            "Có thể có mưa rải rác",
	"patchy light rain":             "Mưa nhẹ rải rác",
	"light rain":                    "Mưa nhẹ",
	"moderate rain":                 "Mưa vừa",
	"heavy rain":                    "Mưa to",
	"light rain shower":             "Mưa rào nhẹ",
	"moderate or heavy rain shower": "Mưa rào vừa hoặc nặng",
	"torrential rain shower":        "Mưa rào lớn",

	"patchy light drizzle": "Mưa phùn nhẹ rải rác",
	"light drizzle":        "Mưa phùn nhẹ",
	"freezing drizzle":     "Mưa phùn đóng băng",

	"patchy snow possible":           "Có thể có tuyết rải rác",
	"light snow":                     "Tuyết nhẹ",
	"moderate snow":                  "Tuyết vừa",
	"heavy snow":                     "Tuyết to",
	"light snow showers":             "Tuyết rơi nhẹ",
	"moderate or heavy snow showers": "Tuyết rơi vừa hoặc nặng",
	"blowing snow":                   "Tuyết thổi",
	"blizzard":                       "Bão tuyết",

	"patchy sleet possible":           "Có thể có mưa tuyết rải rác",
	"light sleet":                     "Mưa tuyết nhẹ",
	"moderate or heavy sleet":         "Mưa tuyết vừa hoặc nặng",
	"light sleet showers":             "Mưa tuyết rào nhẹ",
	"moderate or heavy sleet showers": "Mưa tuyết rào vừa hoặc nặng",

	"patchy freezing drizzle possible": "Có thể có mưa phùn đóng băng",
	"freezing fog":                     "Sương mù đóng băng",
	"light freezing rain":              "Mưa đóng băng nhẹ",
	"moderate or heavy freezing rain":  "Mưa đóng băng vừa hoặc nặng",

	"ice pellets":                              "Mưa đá nhỏ",
	"light showers of ice pellets":             "Mưa đá nhỏ nhẹ",
	"moderate or heavy showers of ice pellets": "Mưa đá nhỏ vừa hoặc nặng",

	"thundery outbreaks possible":         "Có thể có sấm sét",
	"patchy light rain with thunder":      "Mưa nhẹ rải rác có sấm sét",
	"moderate or heavy rain with thunder": "Mưa vừa hoặc to có sấm sét",
	"patchy light snow with thunder":      "Tuyết nhẹ rải rác có sấm sét",
	"moderate or heavy snow with thunder": "Tuyết vừa hoặc to có sấm sét",

	"mist": "Sương mù nhẹ",
	"fog":  "Sương mù",
}

var countryTranslations = map[string]string{
	"Vietnam":                  "Việt Nam",
	"United States":            "Hoa Kỳ",
	"United States of America": "Hoa Kỳ",
	"USA":                      "Hoa Kỳ",
	"China":                    "Trung Quốc",
	"Japan":                    "Nhật Bản",
	"South Korea":              "Hàn Quốc",
	"Thailand":                 "Thái Lan",
	"Singapore":                "Singapore",
	"Malaysia":                 "Malaysia",
	"Indonesia":                "Indonesia",
	"Philippines":              "Philippines",
	"Cambodia":                 "Campuchia",
	"Laos":                     "Lào",
	"Myanmar":                  "Myanmar",
	"United Kingdom":           "Anh",
	"France":                   "Pháp",
	"Germany":                  "Đức",
	"Italy":                    "Ý",
	"Spain":                    "Tây Ban Nha",
	"Australia":                "Úc",
	"Canada":                   "Canada",
	"Russia":                   "Nga",
	"India":                    "Ấn Độ",
}

// TranslateCondition returns the Vietnamese text for a provider condition,
// or the input unchanged when no translation is known.
func TranslateCondition(text string) string {
	if vi, ok := conditionTranslations[strings.ToLower(strings.TrimSpace(text))]; ok {
		return vi
	}
	return text
}

// TranslateCountry returns the Vietnamese country name, or the input unchanged.
func TranslateCountry(name string) string {
	if vi, ok := countryTranslations[name]; ok {
		return vi
	}
	return name
}

// Level is a labelled band of an index scale.
type Level struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Class string  `json:"class,omitempty"`
	Color string  `json:"color,omitempty"`
	Max   float64 `json:"max"`
}

// aqiLevels follows the US EPA bands reported by WeatherAPI.com.
var aqiLevels = []Level{
	{Key: "1", Label: "Tốt", Class: "aqi-good", Max: 50},
	{Key: "2", Label: "Trung bình", Class: "aqi-fair", Max: 100},
	{Key: "3", Label: "Không tốt cho nhóm nhạy cảm", Class: "aqi-moderate", Max: 150},
	{Key: "4", Label: "Có hại", Class: "aqi-poor", Max: 200},
	{Key: "5", Label: "Rất có hại", Class: "aqi-very-poor", Max: 300},
	{Key: "6", Label: "Nguy hiểm", Class: "aqi-very-poor", Max: 500},
}

var uvLevels = []Level{
	{Key: "LOW", Label: "Thấp", Color: "#289500", Max: 2},
	{Key: "MODERATE", Label: "Trung bình", Color: "#f7e401", Max: 5},
	{Key: "HIGH", Label: "Cao", Color: "#f85900", Max: 7},
	{Key: "VERY_HIGH", Label: "Rất cao", Color: "#d8001d", Max: 10},
	{Key: "EXTREME", Label: "Cực cao", Color: "#6b49c8", Max: 0},
}

// AQILevel returns the band for an AQI value. Values above 500 fall in the last band.
func AQILevel(value float64) Level {
	for _, l := range aqiLevels {
		if value <= l.Max {
			return l
		}
	}
	return aqiLevels[len(aqiLevels)-1]
}

// AQILevelForIndex returns the band for a US EPA index (1-6).
func AQILevelForIndex(index int) (Level, bool) {
	if index < 1 || index > len(aqiLevels) {
		return Level{}, false
	}
	return aqiLevels[index-1], true
}

// UVLevel returns the band for a UV index value.
func UVLevel(value float64) Level {
	for _, l := range uvLevels[:len(uvLevels)-1] {
		if value <= l.Max {
			return l
		}
	}
	return uvLevels[len(uvLevels)-1]
}
