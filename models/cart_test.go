package models_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/shopswift/storefront/models"
)

func TestCart_ItemsSubtotalAndTotals(t *testing.T) {
	cart := models.NewCart()
	cart.Items = append(cart.Items,
		models.CartItem{ProductID: uuid.New(), Price: decimal.RequireFromString("10.00"), Quantity: 2},
		models.CartItem{ProductID: uuid.New(), Price: decimal.RequireFromString("5.50"), Quantity: 3},
	)

	subtotal := cart.ItemsSubtotal()
	assert.True(t, subtotal.Equal(decimal.RequireFromString("36.50")))

	cart.SetTotals(subtotal, decimal.NewFromInt(50))
	assert.True(t, cart.Total.IsZero(), "total never goes negative")

	cart.SetTotals(subtotal, decimal.RequireFromString("6.50"))
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(30)))
}

func TestCart_FindItem(t *testing.T) {
	id := uuid.New()
	cart := models.NewCart()
	cart.Items = append(cart.Items, models.CartItem{ProductID: id, Quantity: 1})

	assert.Equal(t, 0, cart.FindItem(id))
	assert.Equal(t, -1, cart.FindItem(uuid.New()))
}

func TestNewMetaData(t *testing.T) {
	meta := models.NewMetaData(2, 10, 25)
	assert.Equal(t, int64(3), meta.TotalPages)
	assert.True(t, meta.HasMore)

	meta = models.NewMetaData(3, 10, 25)
	assert.False(t, meta.HasMore)
}
