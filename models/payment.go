package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusAwaitingConfirmation PaymentStatus = "AWAITING_CONFIRMATION"
	PaymentStatusPaid                 PaymentStatus = "PAID"
	PaymentStatusCanceled             PaymentStatus = "CANCELED"
)

// Payment tracks the confirmation of exactly one order.
type Payment struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID        uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	Status         PaymentStatus `gorm:"type:varchar(30);not null" json:"status"`
	IdempotencyKey *string       `gorm:"type:varchar(255)" json:"-"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CanceledAt     *time.Time    `json:"canceled_at,omitempty"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether no further transition is allowed.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusPaid || p.Status == PaymentStatusCanceled
}

// CreatePaymentRequest is the payload for POST /payments.
type CreatePaymentRequest struct {
	OrderID string `json:"order_id" binding:"required,uuid"`
}
