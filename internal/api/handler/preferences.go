package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/api/middleware"
	"github.com/aliweather/aliweather/internal/api/models"
	"github.com/aliweather/aliweather/internal/api/response"
	"github.com/aliweather/aliweather/internal/preferences"
)

// PreferencesHandler handles the per-session dashboard preferences.
type PreferencesHandler struct {
	prefs  *preferences.Service
	logger zerolog.Logger
}

// NewPreferencesHandler creates a new PreferencesHandler.
func NewPreferencesHandler(prefs *preferences.Service, logger zerolog.Logger) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs, logger: logger}
}

// ListPreferences handles GET /v1/preferences - every preference, defaults included.
func (h *PreferencesHandler) ListPreferences(w http.ResponseWriter, r *http.Request) {
	items := h.prefs.All(r.Context(), middleware.GetSessionID(r.Context()))
	response.JSON(w, r, http.StatusOK, preferences.PreferenceList{Items: items})
}

// GetPreference handles GET /v1/preferences/{key}.
func (h *PreferencesHandler) GetPreference(w http.ResponseWriter, r *http.Request) {
	pref, err := h.prefs.Get(r.Context(), middleware.GetSessionID(r.Context()), chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, pref)
}

// UpdatePreference handles PUT /v1/preferences/{key}.
func (h *PreferencesHandler) UpdatePreference(w http.ResponseWriter, r *http.Request) {
	var input models.PreferenceUpdate
	if !decodeJSON(w, r, &input, false) {
		return
	}

	pref, err := h.prefs.Set(r.Context(), middleware.GetSessionID(r.Context()), chi.URLParam(r, "key"), input.Value)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, pref)
}
