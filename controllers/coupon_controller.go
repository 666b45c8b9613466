package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopswift/storefront/models"
	"github.com/shopswift/storefront/services"
)

// CouponController handles the coupon endpoints. Create, list and
// deactivate are admin only.
type CouponController struct {
	couponService services.CouponService
}

func NewCouponController(couponService services.CouponService) *CouponController {
	return &CouponController{couponService: couponService}
}

// CreateCoupon handles POST /coupons (admin only).
func (cc *CouponController) CreateCoupon(c *gin.Context) {
	var req models.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	coupon, err := cc.couponService.CreateCoupon(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, coupon)
}

// ListCoupons handles GET /coupons (admin only).
func (cc *CouponController) ListCoupons(c *gin.Context) {
	page, limit := parsePaginationParams(c)

	coupons, total, err := cc.couponService.ListCoupons(c.Request.Context(), page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if coupons == nil {
		coupons = []models.Coupon{}
	}
	respondPage(c, http.StatusOK, coupons, models.NewMetaData(page, limit, total))
}

// ValidateCoupon handles POST /coupons/validate.
func (cc *CouponController) ValidateCoupon(c *gin.Context) {
	var req models.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}

	resp, err := cc.couponService.ValidateCoupon(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, resp)
}

// GetCoupon handles GET /coupons/:code.
func (cc *CouponController) GetCoupon(c *gin.Context) {
	coupon, err := cc.couponService.GetCoupon(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, coupon)
}

// DeactivateCoupon handles DELETE /coupons/:code (admin only).
func (cc *CouponController) DeactivateCoupon(c *gin.Context) {
	code := c.Param("code")
	if err := cc.couponService.DeactivateCoupon(c.Request.Context(), code); err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"code": code, "active": false})
}
