// Package notify schedules a single deferred burn-time alert per device and
// delivers it through a pluggable publisher.
package notify

import (
	"context"
	"errors"
	"time"
)

// Scheduler errors.
var (
	ErrSchedulerClosed = errors.New("alert scheduler is closed")
	ErrMissingDeviceID = errors.New("device id is required")
)

// Alert is a burn-time warning for one device.
type Alert struct {
	ID                     string    `json:"id"`
	DeviceID               string    `json:"deviceId"`
	UserID                 string    `json:"userId,omitempty"`
	ScheduledAt            time.Time `json:"scheduledAt"`
	FireAt                 time.Time `json:"fireAt"`
	BurnTimeWithSPFSeconds float64   `json:"burnTimeWithSpfSeconds"`
	UVIndex                float64   `json:"uvIndex"`
	Risk                   string    `json:"risk"`
	Message                string    `json:"message"`
}

// Publisher delivers fired alerts.
type Publisher interface {
	Publish(ctx context.Context, alert Alert) error
	Name() string
}
