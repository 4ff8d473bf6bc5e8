package flood

// Prioritized is the display-ready reduction of an alert batch.
type Prioritized struct {
	// Headline is the highest severity in the batch.
	Headline Severity `json:"headline"`

	// DisplayAlert is the first alert in evaluation order, which is not
	// necessarily the one carrying the headline severity. Nil for an empty batch.
	DisplayAlert *Alert `json:"displayAlert"`

	Alerts []Alert `json:"alerts"`
	Count  int     `json:"count"`
}

// Prioritize reduces alerts to a headline severity and the alert shown in
// the banner summary. The input order is preserved in Alerts.
func Prioritize(alerts []Alert) Prioritized {
	p := Prioritized{
		Headline: Info,
		Alerts:   make([]Alert, len(alerts)),
		Count:    len(alerts),
	}
	copy(p.Alerts, alerts)

	if len(p.Alerts) == 0 {
		return p
	}

	for _, a := range p.Alerts {
		p.Headline = Max(p.Headline, DisasterLevel(a))
	}

	display := p.Alerts[0]
	p.DisplayAlert = &display

	return p
}

// DisasterLevel returns the alert's severity, or Info if the alert carries
// a value outside the defined range.
func DisasterLevel(a Alert) Severity {
	if !a.Severity.Valid() {
		return Info
	}
	return a.Severity
}
