package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sunsafe/sunsafe/internal/api/middleware"
	"github.com/sunsafe/sunsafe/internal/api/models"
	"github.com/sunsafe/sunsafe/internal/api/response"
	"github.com/sunsafe/sunsafe/internal/location"
	"github.com/sunsafe/sunsafe/internal/monitor"
	"github.com/sunsafe/sunsafe/internal/recompute"
	"github.com/sunsafe/sunsafe/internal/settings"
)

// LocationReporter stores and drops device fixes.
type LocationReporter interface {
	Report(ctx context.Context, fix location.Fix) error
	Forget(ctx context.Context, deviceID string) error
}

// DeviceMonitor tracks devices and holds their latest result.
type DeviceMonitor interface {
	Track(ctx context.Context, userID, deviceID string) error
	Owner(deviceID string) (string, bool)
	LastResult(deviceID string) (recompute.Outcome, error)
	Untrack(deviceID string) bool
}

// SettingsReader supplies a user's settings.
type SettingsReader interface {
	Get(ctx context.Context, userID string) (settings.Settings, error)
}

// AlertCanceller disarms a device's pending alert.
type AlertCanceller interface {
	Cancel(deviceID string) bool
}

// MeConfig holds the dependencies of MeHandler.
type MeConfig struct {
	Locations LocationReporter
	Monitor   DeviceMonitor
	Settings  SettingsReader
	Alerts    AlertCanceller
	Logger    zerolog.Logger
}

// MeHandler handles the per-device /v1/me endpoints.
type MeHandler struct {
	cfg MeConfig
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(cfg MeConfig) *MeHandler {
	return &MeHandler{cfg: cfg}
}

// ReportLocation handles POST /v1/me/location. The device is tracked and
// the fix stored; the result follows asynchronously at /v1/me/uv.
func (h *MeHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	var body models.LocationReport
	if err := response.Decode(w, r, &body); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if !h.ownsOrFree(userID, body.DeviceID) {
		response.NotFound(w, r, "device")
		return
	}

	fix := body.ToFix(userID)
	if err := fix.Validate(); err != nil {
		field := "point"
		if errors.Is(err, location.ErrMissingDeviceID) {
			field = "deviceId"
		}
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: field, Message: err.Error()},
		})
		return
	}

	// Track before storing so the fix broadcast finds the device owned and
	// triggers the only recomputation.
	ctx := r.Context()
	if err := h.cfg.Monitor.Track(ctx, userID, fix.DeviceID); err != nil {
		if errors.Is(err, monitor.ErrMonitorClosed) {
			response.ServiceUnavailable(w, r, "shutting down")
			return
		}
		h.cfg.Logger.Error().Err(err).Str("device_id", fix.DeviceID).Msg("failed to track device")
		response.InternalError(w, r, "internal server error")
		return
	}

	if err := h.cfg.Locations.Report(ctx, fix); err != nil {
		h.cfg.Logger.Error().Err(err).Str("device_id", fix.DeviceID).Msg("failed to store fix")
		response.InternalError(w, r, "internal server error")
		return
	}

	response.Accepted(w, r, "/v1/me/uv?deviceId="+url.QueryEscape(body.DeviceID), nil)
}

// GetUV handles GET /v1/me/uv?deviceId= - the latest monitored result.
func (h *MeHandler) GetUV(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "deviceId", Message: "is required"},
		})
		return
	}
	if owner, ok := h.cfg.Monitor.Owner(deviceID); !ok || owner != userID {
		response.NotFound(w, r, "device")
		return
	}

	outcome, err := h.cfg.Monitor.LastResult(deviceID)
	if err != nil {
		switch {
		case errors.Is(err, monitor.ErrNotTracked):
			response.NotFound(w, r, "device")
		case errors.Is(err, location.ErrNoFix):
			response.NoFix(w, r, "no location has been reported for this device")
		case errors.Is(err, monitor.ErrNoResult):
			w.Header().Set("Retry-After", "1")
			response.ServiceUnavailable(w, r, "result is still being computed")
		default:
			response.InternalError(w, r, "internal server error")
		}
		return
	}

	colorblind := false
	if h.cfg.Settings != nil {
		st, err := h.cfg.Settings.Get(r.Context(), userID)
		if err != nil {
			h.cfg.Logger.Warn().Err(err).Str("user_id", userID).Msg("settings unavailable, using standard palette")
		} else {
			colorblind = st.ColorblindSafe
		}
	}

	response.JSON(w, r, http.StatusOK, models.MonitoredUV{
		DeviceID:   deviceID,
		Generation: outcome.Generation,
		ComputedAt: models.Timestamp(outcome.ComputedAt),
		Estimate:   models.NewUVEstimate(outcome.Result, outcome.Inputs.Timestamp, colorblind),
	})
}

// CancelAlert handles DELETE /v1/me/alerts/{deviceId}. Cancelling when no
// alert is pending still succeeds.
func (h *MeHandler) CancelAlert(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	deviceID := chi.URLParam(r, "deviceId")
	if owner, ok := h.cfg.Monitor.Owner(deviceID); !ok || owner != userID {
		response.NotFound(w, r, "device")
		return
	}

	if h.cfg.Alerts != nil && h.cfg.Alerts.Cancel(deviceID) {
		h.cfg.Logger.Info().Str("device_id", deviceID).Msg("alert cancelled by user")
	}
	response.NoContent(w, r)
}

// RemoveDevice handles DELETE /v1/me/devices/{deviceId}. Monitoring stops,
// any pending alert is cancelled and the last fix is dropped.
func (h *MeHandler) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	deviceID := chi.URLParam(r, "deviceId")
	if owner, ok := h.cfg.Monitor.Owner(deviceID); !ok || owner != userID {
		response.NotFound(w, r, "device")
		return
	}

	h.cfg.Monitor.Untrack(deviceID)
	if err := h.cfg.Locations.Forget(r.Context(), deviceID); err != nil {
		h.cfg.Logger.Error().Err(err).Str("device_id", deviceID).Msg("failed to drop fix")
		response.InternalError(w, r, "internal server error")
		return
	}

	h.cfg.Logger.Info().Str("device_id", deviceID).Str("user_id", userID).Msg("device removed")
	response.NoContent(w, r)
}

// ownsOrFree reports whether userID may report for deviceID: the device is
// either untracked or already theirs.
func (h *MeHandler) ownsOrFree(userID, deviceID string) bool {
	owner, ok := h.cfg.Monitor.Owner(deviceID)
	return !ok || owner == userID
}
