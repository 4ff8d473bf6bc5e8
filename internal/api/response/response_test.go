package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aliweather/aliweather/internal/api/middleware"
	"github.com/aliweather/aliweather/internal/api/models"
	"github.com/aliweather/aliweather/internal/api/response"
)

// requestWithID returns a request whose context went through the RequestID middleware.
func requestWithID(t *testing.T, method, path string) *http.Request {
	t.Helper()

	var processed *http.Request
	handler := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, http.NoBody))
	return processed
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req := requestWithID(t, http.MethodGet, "/v1/weather")
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"location": "Huế"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if id := rec.Header().Get("X-Request-Id"); len(id) < 10 {
		t.Errorf("expected X-Request-Id header, got %q", id)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}

func TestJSON_WithoutRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/weather", http.NoBody)
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, nil)

	if id := rec.Header().Get("X-Request-Id"); id != "" {
		t.Errorf("expected no X-Request-Id header, got %q", id)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got %q", rec.Body.String())
	}
}

func TestCreated_SetsLocation(t *testing.T) {
	req := requestWithID(t, http.MethodPost, "/v1/sessions")
	rec := httptest.NewRecorder()

	response.Created(rec, req, "/v1/session/alerts", map[string]string{"sessionId": "abc"})

	if rec.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/v1/session/alerts" {
		t.Errorf("expected Location /v1/session/alerts, got %q", loc)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header to be set")
	}
}

func TestNoContent(t *testing.T) {
	req := requestWithID(t, http.MethodDelete, "/v1/preferences")
	rec := httptest.NewRecorder()

	response.NoContent(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for 204, got %q", rec.Body.String())
	}
}

func TestProblemHelpers(t *testing.T) {
	tests := []struct {
		name     string
		write    func(http.ResponseWriter, *http.Request)
		status   int
		wantType string
	}{
		{"bad request", func(w http.ResponseWriter, r *http.Request) {
			response.BadRequest(w, r, "validation failed", []models.FieldError{{Field: "q", Message: "is required"}})
		}, http.StatusBadRequest, models.ProblemTypeValidation},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			response.Unauthorized(w, r, "invalid token")
		}, http.StatusUnauthorized, models.ProblemTypeUnauthorized},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			response.NotFound(w, r, "location")
		}, http.StatusNotFound, models.ProblemTypeNotFound},
		{"conflict", func(w http.ResponseWriter, r *http.Request) {
			response.Conflict(w, r, "invalid transition")
		}, http.StatusConflict, models.ProblemTypeConflict},
		{"refresh in progress", response.RefreshInProgress, http.StatusConflict, models.ProblemTypeRefreshInProgress},
		{"too many requests", func(w http.ResponseWriter, r *http.Request) {
			response.TooManyRequests(w, r, "slow down")
		}, http.StatusTooManyRequests, models.ProblemTypeTooManyRequests},
		{"internal", func(w http.ResponseWriter, r *http.Request) {
			response.InternalError(w, r, "internal server error")
		}, http.StatusInternalServerError, models.ProblemTypeInternal},
		{"unavailable", func(w http.ResponseWriter, r *http.Request) {
			response.ServiceUnavailable(w, r, "weather provider unavailable")
		}, http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := requestWithID(t, http.MethodGet, "/v1/test")
			rec := httptest.NewRecorder()

			tt.write(rec, req)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("expected problem content type, got %q", ct)
			}

			var problem models.Problem
			if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
				t.Fatalf("failed to decode Problem response: %v", err)
			}
			if problem.Type != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, problem.Type)
			}
			if problem.TraceID == "" {
				t.Error("expected traceId to be set")
			}
			if problem.Instance != "/v1/test" {
				t.Errorf("expected instance /v1/test, got %q", problem.Instance)
			}
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/weather", http.NoBody)
	req.Header.Set("X-Request-Id", "client-request-123")

	var processed *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	})).ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	response.JSON(rec, processed, http.StatusOK, map[string]string{"status": "ok"})

	if id := rec.Header().Get("X-Request-Id"); id != "client-request-123" {
		t.Errorf("expected response X-Request-Id to match client's, got %q", id)
	}
}
