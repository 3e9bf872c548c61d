package models_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsafe/sunsafe/internal/api/models"
	"github.com/sunsafe/sunsafe/internal/uv"
)

func TestSeconds_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A models.Seconds `json:"a"`
		B models.Seconds `json:"b"`
	}{A: 12.5, B: models.Seconds(math.Inf(1))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":12.5,"b":null}`, string(b))

	var back struct {
		A models.Seconds `json:"a"`
		B models.Seconds `json:"b"`
	}
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, models.Seconds(12.5), back.A)
	assert.True(t, math.IsInf(float64(back.B), 1))
}

func TestNewUVEstimate_BelowHorizonEncodesNulls(t *testing.T) {
	at := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)
	est := models.NewUVEstimate(uv.BelowHorizon(), at, false)

	b, err := json.Marshal(est)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(b, &body))
	assert.Nil(t, body["burnTimeSeconds"])
	assert.Nil(t, body["burnTimeWithSpfSeconds"])
	assert.Equal(t, map[string]any{"lowSeconds": nil, "highSeconds": nil}, body["burnTimeRange"])
	assert.Equal(t, "NONE", body["risk"])
	assert.Equal(t, true, body["sunBelowHorizon"])
	assert.Equal(t, "2024-06-01T00:00:00Z", body["evaluatedAt"])
}

func TestNewUVEstimate_UsesPalette(t *testing.T) {
	r := uv.Result{UVIndex: 9, Risk: uv.RiskVeryHigh, BurnTimeSeconds: 100, BurnTimeWithSPFSeconds: 3000}

	standard := models.NewUVEstimate(r, time.Now(), false)
	safe := models.NewUVEstimate(r, time.Now(), true)

	assert.Equal(t, "#D8001D", standard.RiskColor)
	assert.Equal(t, "#D55E00", safe.RiskColor)
	assert.Equal(t, standard.UVIndex, safe.UVIndex)
	assert.Equal(t, models.Seconds(2400), standard.BurnTimeRange.LowSeconds)
	assert.Equal(t, models.Seconds(3600), standard.BurnTimeRange.HighSeconds)
	assert.Equal(t, uv.RiskVeryHigh.Recommendation(), standard.Recommendation)
}

func TestPalette_CoversEveryCategory(t *testing.T) {
	for _, p := range []models.Palette{models.StandardPalette, models.ColorblindSafePalette} {
		seen := map[string]bool{}
		for _, r := range uv.RiskCategories() {
			c := p.Color(r)
			assert.Regexp(t, `^#[0-9A-F]{6}$`, c, "%s %s", p.Name, r)
			assert.False(t, seen[c], "%s reuses %s", p.Name, c)
			seen[c] = true
		}
		assert.Equal(t, p.Color(uv.RiskNone), p.Color(uv.RiskCategory(42)))
	}
}

func TestNewSunPath(t *testing.T) {
	base := uv.Inputs{
		Latitude:  0,
		Longitude: 0,
		Timestamp: time.Date(2023, time.March, 21, 0, 0, 0, 0, time.UTC),
		Skin:      uv.SkinTypeIII,
	}
	samples := uv.DayProfile(base)

	path := models.NewSunPath(models.Point{}, "2023-03-21", samples, false)

	require.Len(t, path.Hours, 24)
	assert.Equal(t, "UTC", path.Zone)
	require.NotNil(t, path.Peak)
	assert.Equal(t, 12, path.Peak.Time.Time().Hour())

	night := base
	night.Latitude = -85
	night.Timestamp = time.Date(2023, time.June, 21, 0, 0, 0, 0, time.UTC)
	dark := models.NewSunPath(models.Point{Lat: -85}, "2023-06-21", uv.DayProfile(night), false)
	assert.Nil(t, dark.Peak)
}
