package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsafe/sunsafe/internal/api/middleware"
	"github.com/sunsafe/sunsafe/internal/auth"
)

func newJWT(now func() time.Time) *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "middleware-test-signing-key-0123456789",
		Issuer:     "https://api.sunsafe.test",
		Audience:   "sunsafe-test",
		Now:        now,
	})
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(middleware.GetUserID(r.Context())))
	})
}

func TestAuth_ValidToken(t *testing.T) {
	svc := newJWT(nil)
	token, _, err := svc.GenerateAccessToken("usr_42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/me/settings", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware.Auth(svc)(echoUser(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "usr_42", rec.Body.String())
}

func TestAuth_SchemeIsCaseInsensitive(t *testing.T) {
	svc := newJWT(nil)
	token, _, err := svc.GenerateAccessToken("usr_42")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/me/settings", http.NoBody)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()

	middleware.Auth(svc)(echoUser(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_Rejections(t *testing.T) {
	svc := newJWT(nil)

	expired, _, err := newJWT(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}).GenerateAccessToken("usr_42")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		detail string
	}{
		{"missing header", "", "missing authorization header"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "invalid authorization header format"},
		{"empty token", "Bearer   ", "missing bearer token"},
		{"garbage token", "Bearer not-a-jwt", "invalid access token"},
		{"expired token", "Bearer " + expired, "access token has expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/me/uv", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			middleware.Auth(svc)(echoUser(t)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.detail)
			assert.Contains(t, rec.Body.String(), "/v1/me/uv")
		})
	}
}

func TestGetUserID_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetUserID(req.Context()))
	assert.Equal(t, "usr_1", middleware.GetUserID(middleware.WithUserID(req.Context(), "usr_1")))
}
