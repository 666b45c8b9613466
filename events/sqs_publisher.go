package events

import (
	"context"
	"encoding/json"
	"fmt"

	awspkg "github.com/shopswift/storefront/pkg/aws"
)

// SQSPublisher sends each event as one queue message.
type SQSPublisher struct {
	client   awspkg.SQSSender
	queueURL string
}

func NewSQSPublisher(client awspkg.SQSSender, queueURL string) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL}
}

func (p *SQSPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	return p.client.SendMessage(ctx, p.queueURL, body, map[string]string{
		"event_type": event.Type,
		"order_id":   event.OrderID,
	})
}

func (p *SQSPublisher) Close() error { return nil }
