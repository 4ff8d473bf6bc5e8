package weather

// View is a snapshot with the Vietnamese display fields the dashboard renders.
type View struct {
	*Snapshot

	CountryVI   string `json:"countryVi"`
	ConditionVI string `json:"conditionVi"`
	IconURL     string `json:"iconUrl"`
	AirQuality  *Level `json:"airQuality,omitempty"`
	UVLevel     Level  `json:"uvLevel"`
}

// NewView decorates s for display.
func NewView(s *Snapshot) View {
	v := View{
		Snapshot:    s,
		CountryVI:   TranslateCountry(s.Location.Country),
		ConditionVI: TranslateCondition(s.Current.ConditionText),
		IconURL:     IconURL(s.Current.IconCode, ""),
		UVLevel:     UVLevel(s.Current.UV),
	}
	if l, ok := AQILevelForIndex(s.Current.AirQualityEPA); ok {
		v.AirQuality = &l
	}
	return v
}
