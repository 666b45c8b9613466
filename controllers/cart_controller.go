package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shopswift/storefront/models"
	"github.com/shopswift/storefront/services"
)

// CartController exposes the caller's cached cart.
type CartController struct {
	cartService services.CartService
}

func NewCartController(cartService services.CartService) *CartController {
	return &CartController{cartService: cartService}
}

// GetCart handles GET /cart.
func (cc *CartController) GetCart(c *gin.Context) {
	key, ok := cartKey(c)
	if !ok {
		return
	}
	cart, err := cc.cartService.GetCart(c.Request.Context(), key)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

// AddItem handles POST /cart/items.
func (cc *CartController) AddItem(c *gin.Context) {
	key, ok := cartKey(c)
	if !ok {
		return
	}
	var req models.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		invalidPayload(c, err)
		return
	}

	cart, err := cc.cartService.AddItem(c.Request.Context(), key, productID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

// RemoveItem handles DELETE /cart/items/:id.
func (cc *CartController) RemoveItem(c *gin.Context) {
	key, ok := cartKey(c)
	if !ok {
		return
	}
	cart, err := cc.cartService.RemoveItem(c.Request.Context(), key, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

// ApplyCoupon handles POST /cart/coupon.
func (cc *CartController) ApplyCoupon(c *gin.Context) {
	key, ok := cartKey(c)
	if !ok {
		return
	}
	var req models.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	cart, err := cc.cartService.ApplyCoupon(c.Request.Context(), key, req.Code)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}

// RemoveCoupon handles DELETE /cart/coupon.
func (cc *CartController) RemoveCoupon(c *gin.Context) {
	key, ok := cartKey(c)
	if !ok {
		return
	}
	cart, err := cc.cartService.RemoveCoupon(c.Request.Context(), key)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, cart)
}
