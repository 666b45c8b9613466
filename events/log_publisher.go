package events

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the structured log only.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Info(event.Type,
		zap.String("order_id", event.OrderID),
		zap.String("user_id", event.UserID),
		zap.String("payment_id", event.PaymentID),
		zap.String("total", event.Total.StringFixed(2)),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
