package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sunsafe/sunsafe/internal/resilience"
)

// Publisher backends.
const (
	PublisherLog     = "log"
	PublisherPubSub  = "pubsub"
	PublisherWebhook = "webhook"
	PublisherKafka   = "kafka"
)

// ErrUnknownPublisher is returned for an unsupported backend name.
var ErrUnknownPublisher = errors.New("unknown alert publisher")

// PublisherConfig selects and configures an alert publisher.
type PublisherConfig struct {
	Kind   string
	Logger zerolog.Logger

	ProjectID   string
	PubSubTopic string

	WebhookURL string
	// Endpoints receives the webhook client for the status endpoint.
	Endpoints *resilience.Registry

	KafkaBrokers []string
	KafkaTopic   string
}

// NewPublisher builds the configured publisher. The returned close function
// is never nil.
func NewPublisher(ctx context.Context, cfg PublisherConfig) (Publisher, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Kind {
	case "", PublisherLog:
		return NewLogPublisher(cfg.Logger), noop, nil
	case PublisherPubSub:
		p, err := NewPubSubPublisher(ctx, cfg.ProjectID, cfg.PubSubTopic)
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil
	case PublisherWebhook:
		clientCfg := resilience.DefaultClientConfig("alert-webhook")
		clientCfg.Registry = cfg.Endpoints
		return NewWebhookPublisher(resilience.NewClient(clientCfg), cfg.WebhookURL), noop, nil
	case PublisherKafka:
		p, err := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", ErrUnknownPublisher, cfg.Kind)
	}
}
