package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliweather/aliweather/internal/api/middleware"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func hit(handler http.Handler, remoteAddr, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/weather", http.NoBody)
	req.RemoteAddr = remoteAddr
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 3,
		WindowLength: time.Minute,
	})(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:12345", "").Code, "request %d should be allowed", i+1)
	}

	rec := hit(handler, "10.0.0.1:12345", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.2:12345", "").Code, "other IPs keep their own budget")
}

func TestRateLimitByIP_RetryAfterFollowsWindow(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{
		RequestLimit: 1,
		WindowLength: 10 * time.Second,
	})(okHandler())

	hit(handler, "172.16.0.1:1", "")
	rec := hit(handler, "172.16.0.1:1", "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
}

func TestRateLimitBySession_KeysOnSession(t *testing.T) {
	f := newAuthFixture(t)
	handler := middleware.SessionAuth(f.tokens, f.sessions)(
		middleware.RateLimitBySession(middleware.RateLimitConfig{
			RequestLimit: 1,
			WindowLength: time.Minute,
		})(okHandler()),
	)

	bearer := func() string {
		id, _ := f.sessions.Create()
		token, _, err := f.tokens.Issue(id)
		require.NoError(t, err)
		return "Bearer " + token
	}
	first, second := bearer(), bearer()

	const sharedIP = "192.168.1.1:12345"
	assert.Equal(t, http.StatusOK, hit(handler, sharedIP, first).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, sharedIP, first).Code)
	assert.Equal(t, http.StatusOK, hit(handler, sharedIP, second).Code, "sessions behind one IP are limited separately")
}

func TestRateLimitBySession_FallsBackToIP(t *testing.T) {
	handler := middleware.RateLimitBySession(middleware.RateLimitConfig{
		RequestLimit: 1,
		WindowLength: time.Minute,
	})(okHandler())

	assert.Equal(t, http.StatusOK, hit(handler, "198.51.100.7:1", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "198.51.100.7:1", "").Code)
	assert.Equal(t, http.StatusOK, hit(handler, "198.51.100.8:1", "").Code)
}

func TestRateLimitExceededResponse_Format(t *testing.T) {
	handler := middleware.RequestID(
		middleware.RateLimitByIP(middleware.RateLimitConfig{
			RequestLimit: 1,
			WindowLength: time.Minute,
		})(okHandler()),
	)

	hit(handler, "203.0.113.1:12345", "")
	rec := hit(handler, "203.0.113.1:12345", "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "too-many-requests")
	assert.Contains(t, body, "/v1/weather")
	assert.Contains(t, body, "req_")
}

func TestDefaultRateLimitConfigs(t *testing.T) {
	assert.Equal(t, 10, middleware.SessionRateLimit.RequestLimit)
	assert.Equal(t, 30, middleware.ExpensiveRateLimit.RequestLimit)
	assert.Equal(t, 100, middleware.StandardRateLimit.RequestLimit)
	assert.Equal(t, time.Minute, middleware.StandardRateLimit.WindowLength)
}
