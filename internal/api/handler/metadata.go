package handler

import (
	"net/http"

	"github.com/sunsafe/sunsafe/internal/api/models"
	"github.com/sunsafe/sunsafe/internal/api/response"
	"github.com/sunsafe/sunsafe/internal/uv"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct {
	enums models.Enums
}

// NewMetadataHandler creates a new MetadataHandler. The enum tables are
// static, so the response is built once.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{enums: buildEnums()}
}

// GetEnums handles GET /v1/metadata/enums - get enum values used by the API.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	response.JSON(w, r, http.StatusOK, h.enums)
}

func buildEnums() models.Enums {
	var enums models.Enums

	for _, c := range uv.CloudConditions() {
		enums.CloudConditions = append(enums.CloudConditions, models.CloudConditionInfo{
			Value:        c.String(),
			Label:        c.Label(),
			Transmission: c.Transmission(),
		})
	}

	for _, s := range uv.SkinTypes() {
		enums.SkinTypes = append(enums.SkinTypes, models.SkinTypeInfo{
			Value:       s.String(),
			Description: s.Description(),
			MED:         s.MED(),
		})
	}

	palettes := []models.Palette{models.StandardPalette, models.ColorblindSafePalette}
	for _, rc := range uv.RiskCategories() {
		colors := make(map[string]string, len(palettes))
		for _, p := range palettes {
			colors[p.Name] = p.Color(rc)
		}
		enums.RiskCategories = append(enums.RiskCategories, models.RiskCategoryInfo{
			Value:          rc.String(),
			Label:          rc.Label(),
			Recommendation: rc.Recommendation(),
			Colors:         colors,
		})
	}
	return enums
}
