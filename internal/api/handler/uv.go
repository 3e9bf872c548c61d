package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/sunsafe/sunsafe/internal/api/models"
	"github.com/sunsafe/sunsafe/internal/api/response"
	"github.com/sunsafe/sunsafe/internal/settings"
	"github.com/sunsafe/sunsafe/internal/uv"
)

const dateLayout = "2006-01-02"

// SunPathGate reports whether the sun-path endpoint is enabled.
type SunPathGate interface {
	SunPathEnabled(ctx context.Context) bool
}

// UVHandler serves the stateless engine endpoints.
type UVHandler struct {
	gate SunPathGate
	now  func() time.Time
}

// NewUVHandler creates a new UVHandler. A nil gate leaves sun-path enabled.
func NewUVHandler(gate SunPathGate, now func() time.Time) *UVHandler {
	if now == nil {
		now = time.Now
	}
	return &UVHandler{gate: gate, now: now}
}

// Estimate handles POST /v1/uv:estimate. Fields left out of the body take
// the defaults of a new user's settings.
func (h *UVHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req models.EstimateRequest
	if err := response.Decode(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	var point models.Point
	var fieldErrors []models.FieldError
	if req.Point == nil {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "point", Message: "is required"})
	} else {
		point = *req.Point
		fieldErrors = validatePoint(fieldErrors, point)
	}
	fieldErrors = validateFinite(fieldErrors, "altitude", req.Altitude)
	fieldErrors = validateNonNegative(fieldErrors, "aqi", req.AQI)
	if req.SPF != nil {
		fieldErrors = validateNonNegative(fieldErrors, "spf", *req.SPF)
	}

	at := h.now().In(uv.NominalZone(point.Lon))
	if req.Time != nil {
		parsed, err := time.Parse(time.RFC3339, *req.Time)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "time", Message: "must be an RFC 3339 timestamp"})
		}
		at = parsed
	}

	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	st := settings.Default("")
	st.AQI = req.AQI
	if req.SPF != nil {
		st.SPF = *req.SPF
	}
	if req.CloudCondition != nil {
		st.Cloud = *req.CloudCondition
	}
	if req.SkinType != nil {
		st.SkinType = *req.SkinType
	}

	result := uv.Calculate(st.Apply(uv.Inputs{
		Latitude:  point.Lat,
		Longitude: point.Lon,
		Altitude:  req.Altitude,
		Timestamp: at,
	}))

	response.JSON(w, r, http.StatusOK, models.NewUVEstimate(result, at, req.ColorblindSafe))
}

// SunPath handles GET /v1/uv/sun-path?lat&lon&date. The day is read in the
// nominal zone of lon; date defaults to today there.
func (h *UVHandler) SunPath(w http.ResponseWriter, r *http.Request) {
	if h.gate != nil && !h.gate.SunPathEnabled(r.Context()) {
		response.FeatureDisabled(w, r, "sun path is not available")
		return
	}

	q := r.URL.Query()
	var fieldErrors []models.FieldError

	lat, fieldErrors := queryFloat(fieldErrors, q.Get("lat"), "lat", true, 0)
	lon, fieldErrors := queryFloat(fieldErrors, q.Get("lon"), "lon", true, 0)
	altitude, fieldErrors := queryFloat(fieldErrors, q.Get("altitude"), "altitude", false, 0)
	aqi, fieldErrors := queryFloat(fieldErrors, q.Get("aqi"), "aqi", false, 0)
	point := models.Point{Lat: lat, Lon: lon}
	fieldErrors = validatePoint(fieldErrors, point)
	fieldErrors = validateNonNegative(fieldErrors, "aqi", aqi)

	st := settings.Default("")
	st.AQI = aqi
	if v := q.Get("cloudCondition"); v != "" {
		c, err := uv.ParseCloudCondition(v)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "cloudCondition", Message: err.Error()})
		}
		st.Cloud = c
	}

	zone := uv.NominalZone(lon)
	day := h.now().In(zone)
	if v := q.Get("date"); v != "" {
		parsed, err := time.ParseInLocation(dateLayout, v, zone)
		if err != nil {
			fieldErrors = append(fieldErrors, models.FieldError{Field: "date", Message: "must be a date in YYYY-MM-DD form"})
		}
		day = parsed
	}

	colorblind, _ := strconv.ParseBool(q.Get("colorblindSafe"))

	if len(fieldErrors) > 0 {
		response.BadRequest(w, r, "validation failed", fieldErrors)
		return
	}

	samples := uv.DayProfile(st.Apply(uv.Inputs{
		Latitude:  lat,
		Longitude: lon,
		Altitude:  altitude,
		Timestamp: day,
	}))

	response.JSON(w, r, http.StatusOK, models.NewSunPath(point, day.Format(dateLayout), samples, colorblind))
}

func queryFloat(errs []models.FieldError, raw, field string, required bool, def float64) (float64, []models.FieldError) {
	if raw == "" {
		if required {
			errs = append(errs, models.FieldError{Field: field, Message: "is required"})
		}
		return def, errs
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, append(errs, models.FieldError{Field: field, Message: "must be a number"})
	}
	return v, validateFinite(errs, field, v)
}

func validatePoint(errs []models.FieldError, p models.Point) []models.FieldError {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		errs = append(errs, models.FieldError{Field: "point.lat", Message: "must be between -90 and 90"})
	}
	if math.IsNaN(p.Lon) || p.Lon < -180 || p.Lon > 180 {
		errs = append(errs, models.FieldError{Field: "point.lon", Message: "must be between -180 and 180"})
	}
	return errs
}

func validateFinite(errs []models.FieldError, field string, v float64) []models.FieldError {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		errs = append(errs, models.FieldError{Field: field, Message: "must be a finite number"})
	}
	return errs
}

func validateNonNegative(errs []models.FieldError, field string, v float64) []models.FieldError {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		errs = append(errs, models.FieldError{Field: field, Message: "must be a non-negative number"})
	}
	return errs
}
