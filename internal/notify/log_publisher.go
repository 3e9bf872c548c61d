package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher writes alerts to the log. It is the local development default.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the alert.
func (p *LogPublisher) Publish(_ context.Context, a Alert) error {
	p.logger.Info().
		Str("alert_id", a.ID).
		Str("device_id", a.DeviceID).
		Float64("uv_index", a.UVIndex).
		Str("risk", a.Risk).
		Time("fire_at", a.FireAt).
		Msg(a.Message)
	return nil
}

// Name returns "log".
func (p *LogPublisher) Name() string { return "log" }

var _ Publisher = (*LogPublisher)(nil)
