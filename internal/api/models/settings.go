package models

import (
	"github.com/sunsafe/sunsafe/internal/location"
	"github.com/sunsafe/sunsafe/internal/settings"
	"github.com/sunsafe/sunsafe/internal/uv"
)

// Settings is the wire form of a user's exposure settings.
type Settings struct {
	SkinType       uv.SkinType       `json:"skinType"`
	SPF            float64           `json:"spf"`
	CloudCondition uv.CloudCondition `json:"cloudCondition"`
	AQI            float64           `json:"aqi"`
	ColorblindSafe bool              `json:"colorblindSafe"`
	AlertsEnabled  bool              `json:"alertsEnabled"`
	UpdatedAt      *Timestamp        `json:"updatedAt,omitempty"`
}

// NewSettings converts stored settings.
func NewSettings(s settings.Settings) Settings {
	out := Settings{
		SkinType:       s.SkinType,
		SPF:            s.SPF,
		CloudCondition: s.Cloud,
		AQI:            s.AQI,
		ColorblindSafe: s.ColorblindSafe,
		AlertsEnabled:  s.AlertsEnabled,
	}
	if !s.UpdatedAt.IsZero() {
		ts := Timestamp(s.UpdatedAt)
		out.UpdatedAt = &ts
	}
	return out
}

// ToSettings converts the request body for userID.
func (s Settings) ToSettings(userID string) settings.Settings {
	return settings.Settings{
		UserID:         userID,
		SkinType:       s.SkinType,
		SPF:            s.SPF,
		Cloud:          s.CloudCondition,
		AQI:            s.AQI,
		ColorblindSafe: s.ColorblindSafe,
		AlertsEnabled:  s.AlertsEnabled,
	}
}

// LocationReport is the body of POST /v1/me/location.
type LocationReport struct {
	DeviceID   string     `json:"deviceId"`
	Point      Point      `json:"point"`
	Altitude   float64    `json:"altitude"`
	Accuracy   float64    `json:"accuracy,omitempty"`
	ObservedAt *Timestamp `json:"observedAt,omitempty"`
}

// ToFix converts the report for userID.
func (l LocationReport) ToFix(userID string) location.Fix {
	fix := location.Fix{
		DeviceID: l.DeviceID,
		UserID:   userID,
		Lat:      l.Point.Lat,
		Lon:      l.Point.Lon,
		Altitude: l.Altitude,
		Accuracy: l.Accuracy,
	}
	if l.ObservedAt != nil {
		fix.ObservedAt = l.ObservedAt.Time()
	}
	return fix
}
