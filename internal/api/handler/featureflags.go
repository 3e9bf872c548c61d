package handler

import (
	"net/http"
	"sort"

	"github.com/rs/zerolog"

	"github.com/sunsafe/sunsafe/internal/api/models"
	"github.com/sunsafe/sunsafe/internal/api/response"
	"github.com/sunsafe/sunsafe/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.NewFeatureFlagList(h.service.List(r.Context())))
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags and returns the
// full flag list after the update.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var body models.FeatureFlagsUpdate
	if err := response.Decode(w, r, &body); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if len(body.Flags) == 0 {
		response.BadRequest(w, r, "validation failed", []models.FieldError{
			{Field: "flags", Message: "at least one flag is required"},
		})
		return
	}

	keys := make([]string, 0, len(body.Flags))
	for k := range body.Flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fieldErrors []models.FieldError
	updates := make([]featureflags.Update, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "flags", Message: "flag key must not be empty"})
			continue
		}
		updates = append(updates, featureflags.Update{Key: k, Value: body.Flags[k]})
	}
	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	if _, err := h.service.Apply(r.Context(), updates); err != nil {
		h.logger.Error().Err(err).Msg("failed to update feature flags")
		response.InternalError(w, r, "failed to update feature flags")
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewFeatureFlagList(h.service.List(r.Context())))
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
