package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer used for publishing.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes alerts to a Kafka topic keyed by device id, so all
// alerts for one device land on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	closer func() error
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}
	return &KafkaPublisher{writer: w, closer: w.Close}, nil
}

// Publish writes the alert synchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, a Alert) error {
	value, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(a.DeviceID), Value: value}); err != nil {
		return fmt.Errorf("writing alert: %w", err)
	}
	return nil
}

// Name returns "kafka".
func (p *KafkaPublisher) Name() string { return "kafka" }

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

var _ Publisher = (*KafkaPublisher)(nil)
