package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/api/middleware"
	"github.com/aliweather/aliweather/internal/api/models"
	"github.com/aliweather/aliweather/internal/api/response"
	"github.com/aliweather/aliweather/internal/dashboard"
	"github.com/aliweather/aliweather/internal/lifecycle"
	"github.com/aliweather/aliweather/internal/preferences"
	"github.com/aliweather/aliweather/internal/weather"
)

// maxBodyBytes bounds request bodies. A WeatherAPI forecast payload for
// fourteen days with hourly data stays well under it.
const maxBodyBytes = 2 << 20

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.BadRequest(w, r, "request body too large", nil)
		return false
	}
	response.BadRequest(w, r, "invalid JSON body", nil)
	return false
}

// writeError maps domain errors to problem responses. Unknown errors are
// logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, weather.ErrEmptyQuery):
		response.BadRequest(w, r, "location query is required", []models.FieldError{
			{Field: "q", Message: "must not be empty", Code: "REQUIRED"},
		})
	case errors.Is(err, weather.ErrNoDataForLocation):
		response.NotFound(w, r, "no weather data for this location")
	case errors.Is(err, weather.ErrProviderUnavailable):
		response.ServiceUnavailable(w, r, "weather provider unavailable, try again shortly")
	case errors.Is(err, dashboard.ErrRefreshInProgress):
		response.RefreshInProgress(w, r)
	case errors.Is(err, dashboard.ErrNoActiveAlerts):
		response.Conflict(w, r, "there are no active alerts to play")
	case errors.Is(err, lifecycle.ErrSessionNotFound):
		response.Unauthorized(w, r, "session has ended, start a new one")
	case errors.Is(err, lifecycle.ErrUnknownEvent):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "event", Message: "unknown event", Code: "INVALID"},
		})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, preferences.ErrUnknownKey):
		response.NotFound(w, r, "unknown preference")
	case errors.Is(err, preferences.ErrInvalidValue):
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "value", Message: err.Error(), Code: "INVALID"},
		})
	default:
		logger.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		response.InternalError(w, r, "internal server error")
	}
}
