package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/models"
	"github.com/shopswift/storefront/services"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type PaymentController struct {
	paymentService services.PaymentService
}

func NewPaymentController(paymentService services.PaymentService) *PaymentController {
	return &PaymentController{paymentService: paymentService}
}

// CreateIntent handles POST /payments.
func (pc *PaymentController) CreateIntent(c *gin.Context) {
	var req models.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c, err)
		return
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		invalidPayload(c, err)
		return
	}

	payment, err := pc.paymentService.CreateIntent(c.Request.Context(), orderID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, payment)
}

// Confirm handles POST /payments/:id/confirm.
func (pc *PaymentController) Confirm(c *gin.Context) {
	paymentID, ok := paymentIDParam(c)
	if !ok {
		return
	}
	payment, err := pc.paymentService.Confirm(c.Request.Context(), paymentID, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, payment)
}

// Cancel handles POST /payments/:id/cancel.
func (pc *PaymentController) Cancel(c *gin.Context) {
	paymentID, ok := paymentIDParam(c)
	if !ok {
		return
	}
	payment, err := pc.paymentService.Cancel(c.Request.Context(), paymentID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, payment)
}

func paymentIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, apperrors.InvalidPayload("Invalid payment id"))
		return uuid.Nil, false
	}
	return id, true
}
