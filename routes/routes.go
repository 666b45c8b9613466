package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/shopswift/storefront/controllers"
	"github.com/shopswift/storefront/middleware"
)

// Controllers groups the handlers mounted by RegisterRoutes.
type Controllers struct {
	Cart    *controllers.CartController
	Order   *controllers.OrderController
	Payment *controllers.PaymentController
	Coupon  *controllers.CouponController
	Health  *controllers.HealthController
}

// RegisterRoutes mounts the public API under /api/v1. Every route except
// /health requires authentication.
func RegisterRoutes(r *gin.Engine, h Controllers, auth gin.HandlerFunc) {
	r.GET("/health", h.Health.Health)

	api := r.Group("/api/v1")
	api.Use(auth)

	cart := api.Group("/cart")
	cart.GET("", h.Cart.GetCart)
	cart.POST("/items", h.Cart.AddItem)
	cart.DELETE("/items/:id", h.Cart.RemoveItem)
	cart.POST("/coupon", h.Cart.ApplyCoupon)
	cart.DELETE("/coupon", h.Cart.RemoveCoupon)

	orders := api.Group("/orders")
	orders.POST("", h.Order.Checkout)
	orders.GET("", h.Order.ListOrders)

	payments := api.Group("/payments")
	payments.POST("", h.Payment.CreateIntent)
	payments.POST("/:id/confirm", h.Payment.Confirm)
	payments.POST("/:id/cancel", h.Payment.Cancel)

	coupons := api.Group("/coupons")
	coupons.POST("/validate", h.Coupon.ValidateCoupon)
	coupons.GET("/:code", h.Coupon.GetCoupon)

	// Admin-only routes
	admin := coupons.Group("")
	admin.Use(middleware.AdminOnly())
	admin.POST("", h.Coupon.CreateCoupon)
	admin.GET("", h.Coupon.ListCoupons)
	admin.DELETE("/:code", h.Coupon.DeactivateCoupon)
}
