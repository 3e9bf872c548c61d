package models

import (
	"time"

	"github.com/sunsafe/sunsafe/internal/uv"
)

// EstimateRequest is the body of POST /v1/uv:estimate.
type EstimateRequest struct {
	Point    *Point   `json:"point"`
	Altitude float64  `json:"altitude"`
	AQI      float64  `json:"aqi"`
	SPF      *float64 `json:"spf,omitempty"`

	// Time is RFC 3339. Its offset selects the civil time zone; omitted means
	// now in the nominal zone of Point.Lon.
	Time *string `json:"time,omitempty"`

	CloudCondition *uv.CloudCondition `json:"cloudCondition,omitempty"`
	SkinType       *uv.SkinType       `json:"skinType,omitempty"`
	ColorblindSafe bool               `json:"colorblindSafe"`
}

// BurnTimeRange is the ±20% band around the protected burn time.
type BurnTimeRange struct {
	LowSeconds  Seconds `json:"lowSeconds"`
	HighSeconds Seconds `json:"highSeconds"`
}

// UVEstimate is one engine result shaped for display.
type UVEstimate struct {
	UVIndex                float64         `json:"uvIndex"`
	UVPowerWattsPerM2      float64         `json:"uvPowerWattsPerM2"`
	Risk                   uv.RiskCategory `json:"risk"`
	RiskLabel              string          `json:"riskLabel"`
	RiskColor              string          `json:"riskColor"`
	Recommendation         string          `json:"recommendation"`
	BurnTimeSeconds        Seconds         `json:"burnTimeSeconds"`
	BurnTimeWithSPFSeconds Seconds         `json:"burnTimeWithSpfSeconds"`
	BurnTimeRange          BurnTimeRange   `json:"burnTimeRange"`
	SolarZenithDegrees     float64         `json:"solarZenithDegrees"`
	SunBelowHorizon        bool            `json:"sunBelowHorizon"`
	EvaluatedAt            Timestamp       `json:"evaluatedAt"`
}

// NewUVEstimate converts an engine result evaluated at at.
func NewUVEstimate(r uv.Result, at time.Time, colorblindSafe bool) UVEstimate {
	rng := r.BurnTimeRange()
	return UVEstimate{
		UVIndex:                r.UVIndex,
		UVPowerWattsPerM2:      r.UVPowerWattsPerM2,
		Risk:                   r.Risk,
		RiskLabel:              r.Risk.Label(),
		RiskColor:              PaletteFor(colorblindSafe).Color(r.Risk),
		Recommendation:         r.Risk.Recommendation(),
		BurnTimeSeconds:        Seconds(r.BurnTimeSeconds),
		BurnTimeWithSPFSeconds: Seconds(r.BurnTimeWithSPFSeconds),
		BurnTimeRange: BurnTimeRange{
			LowSeconds:  Seconds(rng.LowSeconds),
			HighSeconds: Seconds(rng.HighSeconds),
		},
		SolarZenithDegrees: r.SolarZenithDegrees,
		SunBelowHorizon:    r.SunBelowHorizon,
		EvaluatedAt:        Timestamp(at),
	}
}

// HourlyUV is one point of a sun path.
type HourlyUV struct {
	Time      Timestamp       `json:"time"`
	UVIndex   float64         `json:"uvIndex"`
	Risk      uv.RiskCategory `json:"risk"`
	RiskColor string          `json:"riskColor"`
}

// SunPath is the hourly UV curve for one local day.
type SunPath struct {
	Point Point      `json:"point"`
	Date  string     `json:"date"`
	Zone  string     `json:"zone"`
	Hours []HourlyUV `json:"hours"`
	Peak  *HourlyUV  `json:"peak,omitempty"`
}

// NewSunPath converts hourly samples. Peak is omitted when the sun never rises.
func NewSunPath(p Point, date string, samples []uv.HourlySample, colorblindSafe bool) SunPath {
	palette := PaletteFor(colorblindSafe)
	path := SunPath{Point: p, Date: date, Hours: make([]HourlyUV, 0, len(samples))}
	if len(samples) > 0 {
		path.Zone, _ = samples[0].Time.Zone()
	}

	for _, s := range samples {
		path.Hours = append(path.Hours, HourlyUV{
			Time:      Timestamp(s.Time),
			UVIndex:   s.Result.UVIndex,
			Risk:      s.Result.Risk,
			RiskColor: palette.Color(s.Result.Risk),
		})
	}

	if peak, ok := uv.Peak(samples); ok && !peak.Result.SunBelowHorizon {
		h := HourlyUV{
			Time:      Timestamp(peak.Time),
			UVIndex:   peak.Result.UVIndex,
			Risk:      peak.Result.Risk,
			RiskColor: palette.Color(peak.Result.Risk),
		}
		path.Peak = &h
	}
	return path
}

// MonitoredUV is the latest result for a tracked device.
type MonitoredUV struct {
	DeviceID   string     `json:"deviceId"`
	Generation uint64     `json:"generation"`
	ComputedAt Timestamp  `json:"computedAt"`
	Estimate   UVEstimate `json:"estimate"`
}
