package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"

	"github.com/aliweather/aliweather/internal/api/models"
	"github.com/aliweather/aliweather/internal/api/response"
	"github.com/aliweather/aliweather/internal/audio"
	"github.com/aliweather/aliweather/internal/flood"
	"github.com/aliweather/aliweather/internal/weather"
)

// RiskHandler exposes the stateless risk engine: evaluation of a raw
// provider payload, severity labels, safety tips and sound patterns.
type RiskHandler struct {
	clock clockwork.Clock
}

// NewRiskHandler creates a new RiskHandler.
func NewRiskHandler(clock clockwork.Clock) *RiskHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RiskHandler{clock: clock}
}

// Evaluate handles POST /v1/risk/evaluate. The body is a WeatherAPI.com
// forecast.json response; nothing is fetched. Absent sections count as
// empty, so {} evaluates to no alerts at info level.
func (h *RiskHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var payload weather.Payload
	if !decodeJSON(w, r, &payload, false) {
		return
	}

	snap := weather.Normalize(&payload, h.clock.Now())
	p := flood.Prioritize(flood.Evaluate(snap))
	response.JSON(w, r, http.StatusOK, models.NewRiskEvaluation(p))
}

// ListLabels handles GET /v1/risk/labels.
func (h *RiskHandler) ListLabels(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.LabelList{Items: flood.Labels()})
}

// GetSafetyTips handles GET /v1/risk/tips/{severity}.
func (h *RiskHandler) GetSafetyTips(w http.ResponseWriter, r *http.Request) {
	sev, ok := severityParam(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.SafetyTips{
		Severity: sev,
		Label:    flood.LabelFor(sev),
		Tips:     flood.SafetyTips(sev),
	})
}

// GetAudioPattern handles GET /v1/audio/patterns/{severity}. The schedule
// starts now, at unit gain.
func (h *RiskHandler) GetAudioPattern(w http.ResponseWriter, r *http.Request) {
	sev, ok := severityParam(w, r)
	if !ok {
		return
	}
	pattern := audio.SelectPattern(sev)
	base := h.clock.Now()
	response.JSON(w, r, http.StatusOK, models.AudioPattern{
		Pattern:  pattern,
		BaseTime: base,
		Tones:    audio.Schedule(pattern, base),
	})
}

func severityParam(w http.ResponseWriter, r *http.Request) (flood.Severity, bool) {
	sev, err := flood.ParseSeverity(chi.URLParam(r, "severity"))
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "severity", Message: "must be one of info, warning, danger, extreme", Code: "INVALID"},
		})
		return flood.Info, false
	}
	return sev, true
}
