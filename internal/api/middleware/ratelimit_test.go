package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sunsafe/sunsafe/internal/api/middleware"
)

func hit(h http.Handler, remote string, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/uv/sun-path", http.NoBody)
	req.RemoteAddr = remote
	if userID != "" {
		req = req.WithContext(middleware.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 3, WindowLength: time.Minute}
	handler := middleware.RateLimitByIP(cfg)(okHandler)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.1:12345", "").Code, "request %d", i+1)
	}

	rec := hit(handler, "10.0.0.1:12345", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hit(handler, "10.0.0.2:12345", "").Code)
}

func TestRateLimitByIP_RetryAfterFollowsWindow(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 1, WindowLength: 10 * time.Second}
	handler := middleware.RateLimitByIP(cfg)(okHandler)

	hit(handler, "10.0.1.1:1", "")
	rec := hit(handler, "10.0.1.1:1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
}

func TestRateLimitByUser_KeysByUser(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute}
	handler := middleware.RateLimitByUser(cfg)(okHandler)

	// Same user from different addresses shares one bucket.
	assert.Equal(t, http.StatusOK, hit(handler, "192.0.2.1:1", "usr_a").Code)
	assert.Equal(t, http.StatusOK, hit(handler, "192.0.2.2:1", "usr_a").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "192.0.2.3:1", "usr_a").Code)

	// Another user behind the first address is unaffected.
	assert.Equal(t, http.StatusOK, hit(handler, "192.0.2.1:1", "usr_b").Code)
}

func TestRateLimitByUser_FallsBackToIP(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute}
	handler := middleware.RateLimitByUser(cfg)(okHandler)

	assert.Equal(t, http.StatusOK, hit(handler, "198.51.100.1:1", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(handler, "198.51.100.1:1", "").Code)
}

func TestPerMinute(t *testing.T) {
	assert.Equal(t, middleware.RateLimitConfig{RequestLimit: 12, WindowLength: time.Minute},
		middleware.PerMinute(12, middleware.StandardRateLimit))
	assert.Equal(t, middleware.EstimateRateLimit, middleware.PerMinute(0, middleware.EstimateRateLimit))
}
