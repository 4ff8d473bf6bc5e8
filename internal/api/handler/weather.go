package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/api/models"
	"github.com/aliweather/aliweather/internal/api/response"
	"github.com/aliweather/aliweather/internal/weather"
)

// WeatherHandler serves weather snapshots and location search.
type WeatherHandler struct {
	weather *weather.Service
	logger  zerolog.Logger
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(service *weather.Service, logger zerolog.Logger) *WeatherHandler {
	return &WeatherHandler{weather: service, logger: logger}
}

// GetWeather handles GET /v1/weather?q= - the display view of a snapshot.
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	snap, err := h.weather.GetSnapshot(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, weather.NewView(snap))
}

// SearchLocations handles GET /v1/locations?q= - location autocomplete.
func (h *WeatherHandler) SearchLocations(w http.ResponseWriter, r *http.Request) {
	matches, err := h.weather.SearchLocations(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if matches == nil {
		matches = []weather.LocationMatch{}
	}
	response.JSON(w, r, http.StatusOK, models.LocationList{Items: matches})
}
