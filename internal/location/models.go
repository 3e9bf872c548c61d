// Package location receives device position fixes and hands them to
// whoever needs to recompute on a new position.
package location

import (
	"errors"
	"math"
	"time"
)

// Location errors.
var (
	ErrNoFix              = errors.New("no location fix for device")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrMissingDeviceID    = errors.New("device id is required")
)

// Fix is one position report from a device.
type Fix struct {
	DeviceID   string    `json:"deviceId"`
	UserID     string    `json:"userId,omitempty"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Altitude   float64   `json:"altitude"`
	Accuracy   float64   `json:"accuracy,omitempty"` // meters
	ObservedAt time.Time `json:"observedAt"`
}

// Validate checks the fix can be fed to the engine.
func (f Fix) Validate() error {
	if f.DeviceID == "" {
		return ErrMissingDeviceID
	}
	for _, v := range []float64{f.Lat, f.Lon, f.Altitude, f.Accuracy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrInvalidCoordinates
		}
	}
	if f.Lat < -90 || f.Lat > 90 || f.Lon < -180 || f.Lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
