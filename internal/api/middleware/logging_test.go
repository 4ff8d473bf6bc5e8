package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliweather/aliweather/internal/api/middleware"
)

// logLine serves req through h wrapped in Logger and returns the one log entry.
func logLine(t *testing.T, h http.Handler, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	middleware.Logger(zerolog.New(&buf))(h).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return entry
}

func TestLogger_LogsRequest(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"headline":"danger"}`))
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/risk/labels", http.NoBody)
	req.Header.Set("User-Agent", "aliweather-dashboard/1.0")
	entry := logLine(t, h, req)

	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/v1/risk/labels", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, float64(len(`{"headline":"danger"}`)), entry["bytes"])
	assert.Equal(t, "aliweather-dashboard/1.0", entry["user_agent"])
	assert.NotEmpty(t, entry["duration"])
	assert.Empty(t, entry["session_id"])
}

func TestLogger_StatusAndLevel(t *testing.T) {
	tests := []struct {
		name      string
		write     func(http.ResponseWriter)
		wantCode  float64
		wantLevel string
	}{
		{"implicit 200", func(w http.ResponseWriter) { _, _ = w.Write([]byte("ok")) }, 200, "info"},
		{"conflict", func(w http.ResponseWriter) { w.WriteHeader(http.StatusConflict) }, 409, "info"},
		{"internal error", func(w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) }, 500, "error"},
		{"unavailable", func(w http.ResponseWriter) { w.WriteHeader(http.StatusServiceUnavailable) }, 503, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { tt.write(w) })
			entry := logLine(t, h, httptest.NewRequest(http.MethodPost, "/v1/session/refresh", http.NoBody))

			assert.Equal(t, tt.wantCode, entry["status"])
			assert.Equal(t, tt.wantLevel, entry["level"])
		})
	}
}

func TestLogger_IncludesRequestID(t *testing.T) {
	var buf bytes.Buffer
	handler := middleware.RequestID(middleware.Logger(zerolog.New(&buf))(okHandler()))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Contains(t, entry["request_id"], "req_")
}

func TestLogger_IncludesTraceID(t *testing.T) {
	setupTestTracer(t)

	var buf bytes.Buffer
	handler := middleware.Tracing("aliweather-api")(middleware.Logger(zerolog.New(&buf))(okHandler()))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/weather", http.NoBody))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	traceID, _ := entry["trace_id"].(string)
	spanID, _ := entry["span_id"].(string)
	assert.Len(t, traceID, 32)
	assert.Len(t, spanID, 16)
}

func TestLogger_IncludesSessionID(t *testing.T) {
	f := newAuthFixture(t)
	id, _ := f.sessions.Create()
	token, _, err := f.tokens.Issue(id)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/session/alerts", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	entry := logLine(t, middleware.SessionAuth(f.tokens, f.sessions)(okHandler()), req)

	assert.Equal(t, id, entry["session_id"])
}

func TestLogger_RejectedTokenHasNoSessionID(t *testing.T) {
	f := newAuthFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/session/alerts", http.NoBody)
	req.Header.Set("Authorization", "Bearer forged")
	entry := logLine(t, middleware.SessionAuth(f.tokens, f.sessions)(okHandler()), req)

	assert.Equal(t, float64(401), entry["status"])
	assert.Empty(t, entry["session_id"])
}
