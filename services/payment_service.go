package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/events"
	"github.com/shopswift/storefront/models"
	awspkg "github.com/shopswift/storefront/pkg/aws"
	"github.com/shopswift/storefront/repository"
)

// PaymentService drives AWAITING_CONFIRMATION -> PAID | CANCELED. Both end
// states are terminal; repeating a transition returns the payment unchanged.
type PaymentService interface {
	CreateIntent(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	Confirm(ctx context.Context, paymentID uuid.UUID, idempotencyKey string) (*models.Payment, error)
	Cancel(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
}

type paymentServiceImpl struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	uow      repository.UnitOfWork
	events   EventEmitter
	logger   *zap.Logger
	opts     options
}

func NewPaymentService(
	payments repository.PaymentRepository,
	orders repository.OrderRepository,
	uow repository.UnitOfWork,
	emitter EventEmitter,
	logger *zap.Logger,
	opts ...Option,
) PaymentService {
	return &paymentServiceImpl{
		payments: payments,
		orders:   orders,
		uow:      uow,
		events:   emitter,
		logger:   logger,
		opts:     buildOptions(opts),
	}
}

// CreateIntent returns the order's payment, creating it if checkout did not.
func (s *paymentServiceImpl) CreateIntent(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.FindByOrderID(ctx, orderID)
	if err == nil {
		return payment, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("Failed to load payment", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, apperrors.Internal("Failed to create payment", err)
	}

	if _, err := s.orders.FindByID(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Order not found")
		}
		s.logger.Error("Failed to load order", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, apperrors.Internal("Failed to create payment", err)
	}

	payment = &models.Payment{
		ID:      uuid.New(),
		OrderID: orderID,
		Status:  models.PaymentStatusAwaitingConfirmation,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		// Lost a race with a concurrent create: return the winner.
		if errors.Is(err, repository.ErrDuplicate) {
			if existing, findErr := s.payments.FindByOrderID(ctx, orderID); findErr == nil {
				return existing, nil
			}
		}
		s.logger.Error("Failed to create payment", zap.String("order_id", orderID.String()), zap.Error(err))
		return nil, apperrors.Internal("Failed to create payment", err)
	}

	s.logger.Info("Payment intent created",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", orderID.String()),
	)
	return payment, nil
}

func (s *paymentServiceImpl) Confirm(ctx context.Context, paymentID uuid.UUID, idempotencyKey string) (*models.Payment, error) {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		return nil, apperrors.InvalidPayload("Idempotency-Key header is required")
	}

	payment, applied, err := s.uow.MarkPaid(ctx, paymentID, idempotencyKey)
	if err != nil {
		return nil, s.transitionError(paymentID, "confirm", err)
	}
	if !applied {
		s.logger.Info("Payment already terminal, confirm ignored",
			zap.String("payment_id", paymentID.String()),
			zap.String("status", string(payment.Status)),
		)
		return payment, nil
	}

	s.logger.Info("Payment confirmed",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()),
	)
	s.opts.count(s.logger, awspkg.MetricPaymentConfirmed)
	s.emit(ctx, events.TypeOrderPaid, payment)
	return payment, nil
}

// Cancel does not return stock to inventory.
func (s *paymentServiceImpl) Cancel(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	payment, applied, err := s.uow.MarkCanceled(ctx, paymentID)
	if err != nil {
		return nil, s.transitionError(paymentID, "cancel", err)
	}
	if !applied {
		return payment, nil
	}

	s.logger.Info("Payment canceled",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()),
	)
	s.opts.count(s.logger, awspkg.MetricPaymentCanceled)
	s.emit(ctx, events.TypeOrderCanceled, payment)
	return payment, nil
}

func (s *paymentServiceImpl) transitionError(paymentID uuid.UUID, op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Payment not found")
	}
	s.logger.Error("Payment transition failed",
		zap.String("op", op),
		zap.String("payment_id", paymentID.String()),
		zap.Error(err),
	)
	return apperrors.Internal("Failed to update payment", err)
}

func (s *paymentServiceImpl) emit(ctx context.Context, eventType string, payment *models.Payment) {
	event := events.Event{
		Type:       eventType,
		OrderID:    payment.OrderID.String(),
		PaymentID:  payment.ID.String(),
		OccurredAt: s.opts.now().UTC(),
	}
	if order, err := s.orders.FindByID(ctx, payment.OrderID); err == nil {
		event.UserID = order.UserID
		event.Total = order.Total
	} else {
		s.logger.Warn("Emitting event without order details", zap.String("order_id", event.OrderID), zap.Error(err))
	}
	s.events.Emit(ctx, event)
}
