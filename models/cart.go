package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a line in a cart. Price is the catalog price captured when the
// line was first added and is only advisory until checkout.
type CartItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is price * quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the cached cart document. Subtotal, Discount and Total are derived
// and rewritten on every mutation.
type Cart struct {
	Items      []CartItem      `json:"items"`
	CouponCode *string         `json:"coupon_code"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	Total      decimal.Decimal `json:"total"`
	Message    string          `json:"message,omitempty"`
}

func NewCart() *Cart {
	return &Cart{
		Items:    []CartItem{},
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Total:    decimal.Zero,
	}
}

// ItemsSubtotal sums the line totals.
func (c *Cart) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// FindItem returns the index of the line for productID, or -1.
func (c *Cart) FindItem(productID uuid.UUID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// SetTotals stores subtotal and discount and derives total = max(subtotal-discount, 0).
func (c *Cart) SetTotals(subtotal, discount decimal.Decimal) {
	c.Subtotal = subtotal
	c.Discount = discount
	c.Total = decimal.Max(subtotal.Sub(discount), decimal.Zero)
}

// AddItemRequest is the payload for POST /cart/items.
type AddItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

// ApplyCouponRequest is the payload for POST /cart/coupon.
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// DefaultTenant is used when a request carries no tenant id.
const DefaultTenant = "default"

// CartKey identifies one user's cart within a tenant.
type CartKey struct {
	TenantID string
	UserID   string
}

func (k CartKey) String() string {
	tenant := k.TenantID
	if tenant == "" {
		tenant = DefaultTenant
	}
	return "cart:" + tenant + ":" + k.UserID
}
