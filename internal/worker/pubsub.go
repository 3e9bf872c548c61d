package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/sunsafe/sunsafe/internal/location"
)

// Job errors.
var (
	ErrInvalidMessage = errors.New("invalid job message")
	ErrUnknownJobType = errors.New("unknown job type")
)

// FixReporter stores a fix and notifies its listeners.
type FixReporter interface {
	Report(ctx context.Context, fix location.Fix) error
}

// JobMessage is the payload of a worker job.
type JobMessage struct {
	JobType string        `json:"job_type"`
	Fix     *location.Fix `json:"fix,omitempty"`
}

// Jobs dispatches decoded job messages. It is independent of the transport.
type Jobs struct {
	locations FixReporter
	sweep     *SweepJob
	logger    zerolog.Logger
}

// NewJobs creates a job dispatcher.
func NewJobs(locations FixReporter, sweep *SweepJob, logger zerolog.Logger) *Jobs {
	return &Jobs{locations: locations, sweep: sweep, logger: logger}
}

// Handle decodes and runs one job. ErrInvalidMessage and ErrUnknownJobType
// mark messages that will never succeed.
func (j *Jobs) Handle(ctx context.Context, data []byte) (string, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	switch msg.JobType {
	case JobLocationFix:
		return msg.JobType, j.handleLocationFix(ctx, msg)
	case JobSweep:
		if j.sweep == nil {
			return msg.JobType, fmt.Errorf("%w: sweep is not configured", ErrUnknownJobType)
		}
		j.sweep.Run(ctx)
		return msg.JobType, nil
	case JobHealthCheck:
		j.logger.Debug().Msg("health check passed")
		return msg.JobType, nil
	default:
		return msg.JobType, fmt.Errorf("%w: %q", ErrUnknownJobType, msg.JobType)
	}
}

func (j *Jobs) handleLocationFix(ctx context.Context, msg JobMessage) error {
	if msg.Fix == nil {
		return fmt.Errorf("%w: location_fix without fix", ErrInvalidMessage)
	}
	fix := *msg.Fix
	if fix.ObservedAt.IsZero() {
		fix.ObservedAt = time.Now().UTC()
	}
	if err := j.locations.Report(ctx, fix); err != nil {
		if errors.Is(err, location.ErrInvalidCoordinates) || errors.Is(err, location.ErrMissingDeviceID) {
			return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return err
	}
	if j.sweep != nil {
		j.sweep.Observe(fix)
	}
	return nil
}

// Permanent reports whether err will recur on redelivery.
func Permanent(err error) bool {
	return errors.Is(err, ErrInvalidMessage) || errors.Is(err, ErrUnknownJobType)
}

// PubSubHandler receives worker jobs from a Pub/Sub subscription.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	jobs             *Jobs
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Jobs             *Jobs
	Logger           zerolog.Logger

	// MaxOutstanding caps unacknowledged messages. Default: 10
	MaxOutstanding int

	// NumGoroutines is the number of receive streams. Default: 1
	NumGoroutines int
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	maxOutstanding := cfg.MaxOutstanding
	if maxOutstanding <= 0 {
		maxOutstanding = 10
	}
	subscriber.ReceiveSettings.MaxOutstandingMessages = maxOutstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute
	if cfg.NumGoroutines > 0 {
		subscriber.ReceiveSettings.NumGoroutines = cfg.NumGoroutines
	}

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		jobs:             cfg.Jobs,
		logger:           cfg.Logger,
	}, nil
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	jobType, err := h.jobs.Handle(ctx, msg.Data)
	switch {
	case err == nil:
		logger.Debug().
			Str("job_type", jobType).
			Dur("duration", time.Since(startTime)).
			Msg("job completed")
		msg.Ack()
	case Permanent(err):
		// Redelivery cannot help; ack to drop it.
		logger.Warn().Err(err).Str("job_type", jobType).Msg("dropping job")
		msg.Ack()
	default:
		logger.Error().Err(err).Str("job_type", jobType).Msg("job failed")
		msg.Nack()
	}
}
