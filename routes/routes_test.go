package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/shopswift/storefront/common/auth"
	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/controllers"
	"github.com/shopswift/storefront/middleware"
	"github.com/shopswift/storefront/routes"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware(zap.NewNop()))
	routes.RegisterRoutes(r, routes.Controllers{
		Cart:    controllers.NewCartController(nil),
		Order:   controllers.NewOrderController(nil),
		Payment: controllers.NewPaymentController(nil),
		Coupon:  controllers.NewCouponController(nil),
		Health:  controllers.NewHealthController("storefront-api", nil),
	}, middleware.AuthMiddleware(auth.NewTokenVerifier("secret"), true))
	return r
}

func TestRoutes_RequireAuthentication(t *testing.T) {
	r := setupRouter()

	for _, rt := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/cart/items"},
		{http.MethodDelete, "/api/v1/cart/items/abc"},
		{http.MethodPost, "/api/v1/cart/coupon"},
		{http.MethodDelete, "/api/v1/cart/coupon"},
		{http.MethodPost, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodPost, "/api/v1/payments"},
		{http.MethodPost, "/api/v1/payments/abc/confirm"},
		{http.MethodPost, "/api/v1/payments/abc/cancel"},
		{http.MethodPost, "/api/v1/coupons/validate"},
		{http.MethodGet, "/api/v1/coupons/SPRING"},
	} {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestRoutes_CouponAdministrationIsAdminOnly(t *testing.T) {
	r := setupRouter()

	for _, rt := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/coupons"},
		{http.MethodPost, "/api/v1/coupons"},
		{http.MethodDelete, "/api/v1/coupons/SPRING"},
	} {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			req := httptest.NewRequest(rt.method, rt.path, nil)
			req.Header.Set("X-User-ID", "user-1")
			req.Header.Set("X-User-Role", "customer")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestRoutes_HealthIsPublic(t *testing.T) {
	w := httptest.NewRecorder()
	setupRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
