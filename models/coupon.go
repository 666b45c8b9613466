package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CouponType represents the type of discount a coupon provides.
type CouponType string

const (
	CouponTypePercentage CouponType = "PERCENTAGE"
	CouponTypeFixed      CouponType = "FIXED"
)

// Coupon represents a promotional coupon stored in Postgres.
type Coupon struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code           string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Type           CouponType          `gorm:"type:varchar(20);not null" json:"type"`
	Value          decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"value"`
	MinPurchase    decimal.NullDecimal `gorm:"type:numeric(12,2)" json:"min_purchase"`
	UsageLimit     *int                `json:"usage_limit"` // nil = unlimited
	UsageCount     int                 `gorm:"not null;default:0" json:"usage_count"`
	ExpirationDate time.Time           `gorm:"not null" json:"expiration_date"`
	Active         bool                `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt      `gorm:"index" json:"-"`
}

// LimitReached reports whether the coupon has no redemptions left.
func (c *Coupon) LimitReached() bool {
	return c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit
}

// CreateCouponRequest is the payload for creating a new coupon.
type CreateCouponRequest struct {
	Code           string           `json:"code" binding:"required,min=3,max=64"`
	Type           CouponType       `json:"type" binding:"required,oneof=PERCENTAGE FIXED"`
	Value          decimal.Decimal  `json:"value" binding:"gt=0"`
	MinPurchase    *decimal.Decimal `json:"min_purchase" binding:"omitempty,gte=0"`
	UsageLimit     *int             `json:"usage_limit" binding:"omitempty,gt=0"`
	ExpirationDate time.Time        `json:"expiration_date" binding:"required"`
}

// ValidateCouponRequest asks whether a coupon applies to an amount.
type ValidateCouponRequest struct {
	Code   string          `json:"code" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"gte=0"`
}

// ValidateCouponResponse reports a validation result. Reason is set when
// Valid is false.
type ValidateCouponResponse struct {
	Valid    bool            `json:"valid"`
	Code     string          `json:"code"`
	Type     CouponType      `json:"type,omitempty"`
	Discount decimal.Decimal `json:"discount"`
	Reason   string          `json:"reason,omitempty"`
	Message  string          `json:"message,omitempty"`
}
