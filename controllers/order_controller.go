package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/middleware"
	"github.com/shopswift/storefront/models"
	"github.com/shopswift/storefront/services"
)

type OrderController struct {
	orderService services.OrderService
}

func NewOrderController(orderService services.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// Checkout handles POST /orders.
func (oc *OrderController) Checkout(c *gin.Context) {
	key, ok := cartKey(c)
	if !ok {
		return
	}
	order, err := oc.orderService.Checkout(c.Request.Context(), key)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}

// ListOrders handles GET /orders.
func (oc *OrderController) ListOrders(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		fail(c, apperrors.Unauthorized("Authentication required"))
		return
	}
	page, limit := parsePaginationParams(c)

	orders, total, err := oc.orderService.ListOrders(c.Request.Context(), userID, page, limit)
	if err != nil {
		fail(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	respondPage(c, http.StatusOK, orders, models.NewMetaData(page, limit, total))
}
