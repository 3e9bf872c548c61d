// Package settings stores per-user exposure settings: skin type, sunscreen,
// sky and air conditions, and display preferences.
package settings

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sunsafe/sunsafe/internal/uv"
)

// Settings errors.
var (
	ErrSettingsNotFound = errors.New("settings not found")
	ErrInvalidSettings  = errors.New("invalid settings")
)

// Settings are the engine inputs a user controls, plus display preferences.
type Settings struct {
	UserID   string
	SkinType uv.SkinType
	SPF      float64
	Cloud    uv.CloudCondition
	AQI      float64

	// ColorblindSafe selects the presentation palette only.
	ColorblindSafe bool
	AlertsEnabled  bool

	UpdatedAt time.Time
}

// DefaultSPF is applied to users who never saved settings.
const DefaultSPF = 30

// Default returns the settings used before a user saves any.
func Default(userID string) Settings {
	return Settings{
		UserID:        userID,
		SkinType:      uv.SkinTypeII,
		SPF:           DefaultSPF,
		Cloud:         uv.CloudClear,
		AQI:           0,
		AlertsEnabled: true,
	}
}

// Validate checks ranges and enum membership.
func (s Settings) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidSettings)
	}
	if !s.SkinType.Valid() {
		return fmt.Errorf("%w: unknown skin type %d", ErrInvalidSettings, int(s.SkinType))
	}
	if !s.Cloud.Valid() {
		return fmt.Errorf("%w: unknown cloud condition %d", ErrInvalidSettings, int(s.Cloud))
	}
	if !finite(s.SPF) || s.SPF < 0 {
		return fmt.Errorf("%w: spf must be a non-negative number", ErrInvalidSettings)
	}
	if !finite(s.AQI) || s.AQI < 0 {
		return fmt.Errorf("%w: aqi must be a non-negative number", ErrInvalidSettings)
	}
	return nil
}

// Apply copies the user-controlled inputs onto in.
func (s Settings) Apply(in uv.Inputs) uv.Inputs {
	in.Skin = s.SkinType
	in.SPF = s.SPF
	in.Cloud = s.Cloud
	in.AQI = s.AQI
	return in
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
