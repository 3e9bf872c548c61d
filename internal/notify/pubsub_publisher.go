package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub/v2"
)

// PubSubPublisher publishes alerts as JSON messages to a Pub/Sub topic.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topic     string
}

// NewPubSubPublisher connects to topicID in projectID.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(topicID),
		topic:     topicID,
	}, nil
}

// Publish sends the alert and waits for the server ack.
func (p *PubSubPublisher) Publish(ctx context.Context, a Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	result := p.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"device_id": a.DeviceID,
			"risk":      a.Risk,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing alert to %s: %w", p.topic, err)
	}
	return nil
}

// Name returns "pubsub".
func (p *PubSubPublisher) Name() string { return "pubsub" }

// Close flushes pending messages and closes the client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}

var _ Publisher = (*PubSubPublisher)(nil)
