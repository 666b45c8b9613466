package events

import (
	"context"
	"encoding/json"
	"fmt"

	awspkg "github.com/shopswift/storefront/pkg/aws"
)

// SNSPublisher sends events to a topic with the event type as a message
// attribute for subscription filtering.
type SNSPublisher struct {
	client   awspkg.SNSPublisher
	topicArn string
}

func NewSNSPublisher(client awspkg.SNSPublisher, topicArn string) *SNSPublisher {
	return &SNSPublisher{client: client, topicArn: topicArn}
}

func (p *SNSPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	return p.client.Publish(ctx, p.topicArn, body, map[string]string{"event_type": event.Type})
}

func (p *SNSPublisher) Close() error { return nil }
