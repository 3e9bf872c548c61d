package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sunsafe/sunsafe/internal/api/middleware"
	"github.com/sunsafe/sunsafe/internal/api/models"
	"github.com/sunsafe/sunsafe/internal/api/response"
	"github.com/sunsafe/sunsafe/internal/settings"
)

// SettingsStore reads and writes user settings.
type SettingsStore interface {
	Get(ctx context.Context, userID string) (settings.Settings, error)
	Update(ctx context.Context, s settings.Settings) (settings.Settings, error)
	Reset(ctx context.Context, userID string) (settings.Settings, error)
}

// SettingsHandler handles /v1/me/settings.
type SettingsHandler struct {
	store  SettingsStore
	logger zerolog.Logger
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(store SettingsStore, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, logger: logger}
}

// GetSettings handles GET /v1/me/settings. Users who never saved settings
// get the defaults.
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	st, err := h.store.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load settings")
		response.InternalError(w, r, "internal server error")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewSettings(st))
}

// PutSettings handles PUT /v1/me/settings - replace the user's settings.
func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	var body models.Settings
	if err := response.Decode(w, r, &body); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	st, err := h.store.Update(r.Context(), body.ToSettings(userID))
	if err != nil {
		if errors.Is(err, settings.ErrInvalidSettings) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to save settings")
		response.InternalError(w, r, "internal server error")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewSettings(st))
}

// ResetSettings handles DELETE /v1/me/settings - drop saved settings and
// return the defaults now in effect.
func (h *SettingsHandler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	st, err := h.store.Reset(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to reset settings")
		response.InternalError(w, r, "internal server error")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewSettings(st))
}
