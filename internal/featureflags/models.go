// Package featureflags provides runtime switches for alerting and
// presentation features.
package featureflags

import (
	"encoding/json"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDisableAlertsSending stops burn-time alerts from being published.
	// Alerts are still scheduled so that re-enabling takes effect on the next fire.
	FlagDisableAlertsSending = "disable_alerts_sending"

	// FlagEnableSunPath exposes the hourly sun-path endpoint.
	FlagEnableSunPath = "enable_sun_path"

	// FlagAlertLeadSeconds fires alerts this many seconds before the
	// protected burn time is reached.
	FlagAlertLeadSeconds = "alert_lead_seconds"
)

// Flag is a feature flag with a JSON-compatible value.
type Flag struct {
	Key       string    `json:"key"`
	Value     any       `json:"value"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Update is a single requested change.
type Update struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// BoolValue returns the value as a bool, or def when absent or not boolean.
func (f *Flag) BoolValue(def bool) bool {
	if f == nil {
		return def
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return def
	}
}

// IntValue returns the value as an int, or def when absent or not numeric.
func (f *Flag) IntValue(def int) int {
	if f == nil {
		return def
	}
	switch v := f.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

// StringValue returns the value as a string, or def.
func (f *Flag) StringValue(def string) string {
	if f == nil {
		return def
	}
	if s, ok := f.Value.(string); ok {
		return s
	}
	return def
}

func (f *Flag) clone() *Flag {
	c := *f
	return &c
}

// DefaultFlags returns the built-in flag values.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagDisableAlertsSending: {Key: FlagDisableAlertsSending, Value: false, UpdatedAt: now},
		FlagEnableSunPath:        {Key: FlagEnableSunPath, Value: true, UpdatedAt: now},
		FlagAlertLeadSeconds:     {Key: FlagAlertLeadSeconds, Value: float64(0), UpdatedAt: now},
	}
}
