package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aliweather/aliweather/internal/api/middleware"
	"github.com/aliweather/aliweather/internal/api/models"
	"github.com/aliweather/aliweather/internal/api/response"
	"github.com/aliweather/aliweather/internal/dashboard"
	"github.com/aliweather/aliweather/internal/lifecycle"
	"github.com/aliweather/aliweather/internal/session"
)

// SessionHandler handles dashboard sessions: creation, the alert lifecycle,
// refresh cycles and the alert sound.
type SessionHandler struct {
	sessions  *lifecycle.Registry
	tokens    *session.TokenService
	dashboard *dashboard.Service
	logger    zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *lifecycle.Registry, tokens *session.TokenService, dash *dashboard.Service, logger zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions:  sessions,
		tokens:    tokens,
		dashboard: dash,
		logger:    logger,
	}
}

// CreateSession handles POST /v1/sessions. A new session starts Idle with no alerts.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	id, controller := h.sessions.Create()

	token, expiresAt, err := h.tokens.Issue(id)
	if err != nil {
		h.sessions.Delete(id)
		writeError(w, r, h.logger, err)
		return
	}

	h.logger.Debug().Str("session_id", id).Msg("session created")
	response.Created(w, r, "/v1/session/alerts", models.SessionCreated{
		SessionID: id,
		Token:     token,
		ExpiresAt: expiresAt,
		Alerts:    controller.View(),
	})
}

// GetAlerts handles GET /v1/session/alerts - the lifecycle view.
func (h *SessionHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	controller, ok := h.controller(w, r)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, controller.View())
}

// ApplyEvent handles POST /v1/session/alerts/events - a user action on the
// banner, badge or modal.
func (h *SessionHandler) ApplyEvent(w http.ResponseWriter, r *http.Request) {
	var input models.AlertEventRequest
	if !decodeJSON(w, r, &input, false) {
		return
	}

	ev, err := lifecycle.ParseEvent(input.Event)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	controller, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := controller.Apply(ev); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, controller.View())
}

// Refresh handles POST /v1/session/refresh - one fetch, evaluate, lifecycle
// and sound cycle. An empty body refreshes the last location.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var input models.RefreshRequest
	if !decodeJSON(w, r, &input, true) {
		return
	}

	result, err := h.dashboard.Refresh(r.Context(), dashboard.RefreshRequest{
		SessionID:      middleware.GetSessionID(r.Context()),
		Query:          input.Query,
		UserInteracted: input.Interacted,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// PlaySound handles POST /v1/session/audio/play - the retry path for a sound
// that was deferred until the user interacted with the page.
func (h *SessionHandler) PlaySound(w http.ResponseWriter, r *http.Request) {
	var input models.PlaySoundRequest
	if !decodeJSON(w, r, &input, true) {
		return
	}

	result, err := h.dashboard.PlaySound(r.Context(), middleware.GetSessionID(r.Context()), input.Interacted)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

func (h *SessionHandler) controller(w http.ResponseWriter, r *http.Request) (*lifecycle.Controller, bool) {
	controller, err := h.sessions.Get(middleware.GetSessionID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, err)
		return nil, false
	}
	return controller, true
}
