package notify

import (
	"context"
	"fmt"

	"github.com/sunsafe/sunsafe/internal/resilience"
)

// WebhookPublisher POSTs alerts to a push gateway through a resilient client.
type WebhookPublisher struct {
	client *resilience.Client
	url    string
}

// NewWebhookPublisher creates a publisher posting to url.
func NewWebhookPublisher(client *resilience.Client, url string) *WebhookPublisher {
	return &WebhookPublisher{client: client, url: url}
}

// Publish posts the alert as JSON.
func (p *WebhookPublisher) Publish(ctx context.Context, a Alert) error {
	if err := p.client.PostJSON(ctx, p.url, a); err != nil {
		return fmt.Errorf("posting alert: %w", err)
	}
	return nil
}

// Name returns "webhook".
func (p *WebhookPublisher) Name() string { return "webhook" }

var _ Publisher = (*WebhookPublisher)(nil)
