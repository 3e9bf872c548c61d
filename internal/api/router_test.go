package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsafe/sunsafe/internal/api"
	"github.com/sunsafe/sunsafe/internal/api/handler"
	"github.com/sunsafe/sunsafe/internal/api/models"
	"github.com/sunsafe/sunsafe/internal/auth"
	"github.com/sunsafe/sunsafe/internal/featureflags"
	"github.com/sunsafe/sunsafe/internal/location"
	"github.com/sunsafe/sunsafe/internal/monitor"
	"github.com/sunsafe/sunsafe/internal/notify"
	"github.com/sunsafe/sunsafe/internal/settings"
)

// summerMorning is 11:00 at the nominal zone of Amsterdam (UTC).
var summerMorning = time.Date(2024, time.June, 21, 11, 0, 0, 0, time.UTC)

type fixture struct {
	router    http.Handler
	jwt       *auth.JWTService
	flags     *featureflags.Service
	scheduler *notify.Scheduler
	monitor   *monitor.Service
	locations *location.Service
}

func newFixture(t *testing.T, checks ...handler.DependencyCheck) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)
	now := func() time.Time { return summerMorning }

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SigningKey: "router-test-signing-key-0123456789abcdef",
		Issuer:     "https://api.sunsafe.test",
		Audience:   "sunsafe-api",
	})
	flags := featureflags.NewService(featureflags.ServiceConfig{Logger: logger})
	settingsSvc := settings.NewService(settings.ServiceConfig{Logger: logger})
	locations := location.NewService(location.ServiceConfig{Logger: logger, Now: now})
	scheduler := notify.NewScheduler(notify.SchedulerConfig{Flags: flags, Logger: logger})
	mon := monitor.NewService(monitor.ServiceConfig{
		Locations: locations,
		Settings:  settingsSvc,
		Alerts:    scheduler,
		Settle:    time.Millisecond,
		Logger:    logger,
		Now:       now,
	})
	locations.Subscribe(mon.OnFix)
	settingsSvc.Subscribe(mon.OnSettings)

	t.Cleanup(func() {
		mon.Close()
		scheduler.Close()
	})

	router := api.NewRouter(api.RouterConfig{
		Version:            "test",
		BuildTime:          "2024-01-01T00:00:00Z",
		Logger:             logger,
		Authenticator:      jwtService,
		FeatureFlagService: flags,
		SettingsService:    settingsSvc,
		LocationService:    locations,
		Monitor:            mon,
		Scheduler:          scheduler,
		Checks:             checks,
		Now:                now,
	})

	return &fixture{router: router, jwt: jwtService, flags: flags, scheduler: scheduler, monitor: mon, locations: locations}
}

func (f *fixture) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "203.0.113.10:4000"
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		token, _, err := f.jwt.GenerateAccessToken(userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRouter_HealthCheck(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/ops/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	var health models.Health
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	f := newFixture(t, handler.DependencyCheck{Name: "postgres", Check: func(ctx context.Context) error { return nil }})
	w := f.do(t, http.MethodGet, "/v1/ops/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	failing := newFixture(t, handler.DependencyCheck{Name: "valkey", Check: func(ctx context.Context) error {
		return errors.New("connection refused")
	}})
	w = failing.do(t, http.MethodGet, "/v1/ops/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, "FAIL", body["status"])
	assert.Equal(t, "FAIL", body["details"].(map[string]any)["valkey"])
}

func TestRouter_SystemStatus(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/ops/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/v1/ops/status", "usr_ops", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, float64(0), body["monitor"].(map[string]any)["trackedDevices"])
}

func TestRouter_GetEnums(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/metadata/enums", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Len(t, body["cloudConditions"], 3)
	assert.Len(t, body["skinTypes"], 6)
	assert.Len(t, body["riskCategories"], 6)
}

func TestRouter_Estimate(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/uv:estimate", "", map[string]any{
		"point":          map[string]any{"lat": 52.37, "lon": 4.9},
		"time":           "2024-06-21T13:00:00+02:00",
		"cloudCondition": "CLEAR",
		"skinType":       "TYPE_II",
		"spf":            30,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Greater(t, body["uvIndex"], 5.0)
	assert.Equal(t, false, body["sunBelowHorizon"])
	assert.NotNil(t, body["burnTimeWithSpfSeconds"])
	assert.Equal(t, "2024-06-21T13:00:00+02:00", body["evaluatedAt"])
}

func TestRouter_Estimate_NightEncodesInfiniteBurnAsNull(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/uv:estimate", "", map[string]any{
		"point": map[string]any{"lat": 0, "lon": 0},
		"time":  "2023-03-21T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["sunBelowHorizon"])
	assert.Equal(t, "NONE", body["risk"])
	assert.Nil(t, body["burnTimeSeconds"])
	assert.Nil(t, body["burnTimeWithSpfSeconds"])
}

func TestRouter_Estimate_ValidationError(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/uv:estimate", "", map[string]any{
		"point": map[string]any{"lat": 95, "lon": 4.9},
		"spf":   -1,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	body := decode(t, w)
	assert.Len(t, body["errors"], 2)

	w = f.do(t, http.MethodPost, "/v1/uv:estimate", "", map[string]any{
		"point":    map[string]any{"lat": 1, "lon": 1},
		"skinType": "TYPE_IX",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_SunPath(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/uv/sun-path?lat=52.37&lon=4.9&date=2024-06-21", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Len(t, body["hours"], 24)
	assert.Equal(t, "2024-06-21", body["date"])
	assert.Equal(t, "UTC", body["zone"])
	require.NotNil(t, body["peak"])
}

func TestRouter_SunPath_Disabled(t *testing.T) {
	f := newFixture(t)
	_, err := f.flags.Apply(t.Context(), []featureflags.Update{{Key: featureflags.FlagEnableSunPath, Value: false}})
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/v1/uv/sun-path?lat=52.37&lon=4.9", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), models.ProblemTypeFeatureDisabled)
}

func TestRouter_Settings(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/me/settings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/v1/me/settings", "usr_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "TYPE_II", body["skinType"])
	assert.Equal(t, float64(settings.DefaultSPF), body["spf"])

	w = f.do(t, http.MethodPut, "/v1/me/settings", "usr_1", map[string]any{
		"skinType":       "TYPE_IV",
		"spf":            50,
		"cloudCondition": "OVERCAST",
		"aqi":            20,
		"colorblindSafe": true,
		"alertsEnabled":  false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, "TYPE_IV", body["skinType"])
	assert.NotNil(t, body["updatedAt"])

	w = f.do(t, http.MethodPut, "/v1/me/settings", "usr_1", map[string]any{
		"skinType":       "TYPE_IV",
		"spf":            -3,
		"cloudCondition": "CLEAR",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_LocationFlow(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/me/uv?deviceId=dev_1", "usr_1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/v1/me/location", "usr_1", map[string]any{
		"deviceId": "dev_1",
		"point":    map[string]any{"lat": 52.37, "lon": 4.9},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "/v1/me/uv?deviceId=dev_1", w.Header().Get("Location"))

	var body map[string]any
	require.Eventually(t, func() bool {
		w = f.do(t, http.MethodGet, "/v1/me/uv?deviceId=dev_1", "usr_1", nil)
		if w.Code != http.StatusOK {
			return false
		}
		body = decode(t, w)
		return true
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, "dev_1", body["deviceId"])
	estimate := body["estimate"].(map[string]any)
	assert.Greater(t, estimate["uvIndex"], 0.0)

	require.Eventually(t, func() bool { return f.scheduler.PendingCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Another user can neither read nor hijack the device.
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/me/uv?deviceId=dev_1", "usr_2", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/v1/me/location", "usr_2", map[string]any{
		"deviceId": "dev_1",
		"point":    map[string]any{"lat": 0, "lon": 0},
	}).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/v1/me/alerts/dev_1", "usr_2", nil).Code)

	w = f.do(t, http.MethodDelete, "/v1/me/alerts/dev_1", "usr_1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, f.scheduler.PendingCount())
}

func TestRouter_ResetSettings(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPut, "/v1/me/settings", "usr_1", map[string]any{
		"skinType":       "TYPE_IV",
		"spf":            50,
		"cloudCondition": "CLEAR",
		"alertsEnabled":  false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/v1/me/location", "usr_1", map[string]any{
		"deviceId": "dev_1",
		"point":    map[string]any{"lat": 52.37, "lon": 4.9},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Eventually(t, func() bool {
		return f.do(t, http.MethodGet, "/v1/me/uv?deviceId=dev_1", "usr_1", nil).Code == http.StatusOK
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, f.scheduler.PendingCount())

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodDelete, "/v1/me/settings", "", nil).Code)

	w = f.do(t, http.MethodDelete, "/v1/me/settings", "usr_1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "TYPE_II", body["skinType"])
	assert.Equal(t, float64(settings.DefaultSPF), body["spf"])
	assert.Equal(t, true, body["alertsEnabled"])

	// The defaults re-enable alerts on the tracked device.
	require.Eventually(t, func() bool { return f.scheduler.PendingCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	w = f.do(t, http.MethodGet, "/v1/me/settings", "usr_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "TYPE_II", decode(t, w)["skinType"])
}

func TestRouter_RemoveDevice(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/me/location", "usr_1", map[string]any{
		"deviceId": "dev_1",
		"point":    map[string]any{"lat": 52.37, "lon": 4.9},
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Eventually(t, func() bool { return f.scheduler.PendingCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/v1/me/devices/dev_1", "usr_2", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/v1/me/devices/dev_9", "usr_1", nil).Code)

	w = f.do(t, http.MethodDelete, "/v1/me/devices/dev_1", "usr_1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, 0, f.scheduler.PendingCount())
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/v1/me/uv?deviceId=dev_1", "usr_1", nil).Code)
	_, err := f.locations.Latest(t.Context(), "dev_1")
	assert.ErrorIs(t, err, location.ErrNoFix)

	// A second removal finds nothing.
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/v1/me/devices/dev_1", "usr_1", nil).Code)

	// The freed device id can be claimed by another user.
	w = f.do(t, http.MethodPost, "/v1/me/location", "usr_2", map[string]any{
		"deviceId": "dev_1",
		"point":    map[string]any{"lat": 52.37, "lon": 4.9},
	})
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
}

func TestRouter_Location_ValidationError(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/v1/me/location", "usr_1", map[string]any{
		"deviceId": "dev_1",
		"point":    map[string]any{"lat": 91, "lon": 0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/v1/me/location", "usr_1", map[string]any{
		"point": map[string]any{"lat": 1, "lon": 0},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "deviceId")
}

func TestRouter_FeatureFlags(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/admin/feature-flags", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPut, "/v1/admin/feature-flags", "usr_admin", map[string]any{
		"flags": map[string]any{featureflags.FlagDisableAlertsSending: true},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, f.flags.AlertsSendingDisabled(t.Context()))

	w = f.do(t, http.MethodGet, "/v1/admin/feature-flags", "usr_admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 3)

	w = f.do(t, http.MethodPut, "/v1/admin/feature-flags", "usr_admin", map[string]any{"flags": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/v1/admin/feature-flags/invalidate", "usr_admin", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "edge-4242")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, "edge-4242", w.Header().Get("X-Request-Id"))
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/uv:estimate", bytes.NewReader([]byte("lat=1")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/v1/nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
