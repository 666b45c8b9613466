package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event types emitted by checkout and payments.
const (
	TypeOrderCreated  = "order.created"
	TypeOrderPaid     = "order.paid"
	TypeOrderCanceled = "order.canceled"
)

// Event is the audit record published for every order state change.
type Event struct {
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id,omitempty"`
	PaymentID  string          `json:"payment_id,omitempty"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Publisher delivers an event to a sink. Implementations may block.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
