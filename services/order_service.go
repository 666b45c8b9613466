package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/events"
	"github.com/shopswift/storefront/models"
	awspkg "github.com/shopswift/storefront/pkg/aws"
	"github.com/shopswift/storefront/repository"
)

// productLoadConcurrency bounds parallel product reads during checkout.
const productLoadConcurrency = 8

type OrderService interface {
	// Checkout turns the cart into a PENDING order with an awaiting payment.
	// The cart's cached prices are ignored; every line is re-priced from the
	// catalog.
	Checkout(ctx context.Context, key models.CartKey) (*models.Order, error)
	ListOrders(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error)
}

type orderServiceImpl struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
	uow      repository.UnitOfWork
	coupons  CouponService
	events   EventEmitter
	logger   *zap.Logger
	opts     options
}

func NewOrderService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	uow repository.UnitOfWork,
	coupons CouponService,
	emitter EventEmitter,
	logger *zap.Logger,
	opts ...Option,
) OrderService {
	return &orderServiceImpl{
		carts:    carts,
		products: products,
		orders:   orders,
		uow:      uow,
		coupons:  coupons,
		events:   emitter,
		logger:   logger,
		opts:     buildOptions(opts),
	}
}

func (s *orderServiceImpl) Checkout(ctx context.Context, key models.CartKey) (*models.Order, error) {
	cart, err := loadCart(ctx, s.carts, key, s.logger)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidPayload("Cart is empty")
	}

	items, subtotal, err := s.priceItems(ctx, cart.Items)
	if err != nil {
		s.opts.count(s.logger, awspkg.MetricCheckoutFailed)
		return nil, err
	}

	order := &models.Order{
		ID:       uuid.New(),
		UserID:   key.UserID,
		Subtotal: subtotal,
		Discount: decimal.Zero,
		Status:   models.OrderStatusPending,
		Items:    items,
	}

	// At checkout a rejected coupon fails the request instead of being dropped.
	if cart.CouponCode != nil {
		validation, err := s.coupons.Validate(ctx, *cart.CouponCode, subtotal)
		if err != nil {
			var rejection *CouponRejection
			if errors.As(err, &rejection) {
				return nil, apperrors.InvalidPayload(rejection.Message).
					WithDetails(map[string]any{"reason": rejection.Reason})
			}
			return nil, err
		}
		order.Discount = validation.Discount
		order.CouponID = &validation.Coupon.ID
		order.CouponCode = &validation.Coupon.Code
	}
	order.Total = decimal.Max(subtotal.Sub(order.Discount), decimal.Zero)

	if err := s.uow.PlaceOrder(ctx, order); err != nil {
		s.opts.count(s.logger, awspkg.MetricCheckoutFailed)
		return nil, s.placeOrderError(order, err)
	}

	// The order is committed; a stale cart is only an inconvenience.
	if err := s.carts.Delete(ctx, key); err != nil {
		s.logger.Warn("Failed to clear cart after checkout",
			zap.String("key", key.String()),
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", order.UserID),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int("items", len(order.Items)),
	)
	s.opts.count(s.logger, awspkg.MetricCartCheckouts)

	event := events.Event{
		Type:       events.TypeOrderCreated,
		OrderID:    order.ID.String(),
		UserID:     order.UserID,
		Total:      order.Total,
		OccurredAt: s.opts.now().UTC(),
	}
	if order.Payment != nil {
		event.PaymentID = order.Payment.ID.String()
	}
	s.events.Emit(ctx, event)

	return order, nil
}

// priceItems reloads every product and checks availability in cart order.
func (s *orderServiceImpl) priceItems(ctx context.Context, lines []models.CartItem) ([]models.OrderItem, decimal.Decimal, error) {
	products := make([]*models.Product, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(productLoadConcurrency)
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			product, err := s.products.FindByID(gctx, line.ProductID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("load product %s: %w", line.ProductID, err)
			}
			products[i] = product
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to load products for checkout", zap.Error(err))
		return nil, decimal.Zero, apperrors.Internal("Failed to process checkout", err)
	}

	items := make([]models.OrderItem, 0, len(lines))
	subtotal := decimal.Zero
	for i, line := range lines {
		product := products[i]
		if product == nil {
			return nil, decimal.Zero, unavailable(line)
		}
		if product.Stock < line.Quantity {
			s.opts.count(s.logger, awspkg.MetricOutOfStock)
			return nil, decimal.Zero, apperrors.OutOfStock(fmt.Sprintf("Insufficient stock for %s", product.Name)).
				WithDetails(map[string]any{
					"product_id": product.ID.String(),
					"requested":  line.Quantity,
					"available":  product.Stock,
				})
		}
		if !product.IsActive() {
			return nil, decimal.Zero, unavailable(line)
		}

		item := models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			Price:     product.Price,
		}
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, item)
	}
	return items, subtotal, nil
}

func unavailable(line models.CartItem) *apperrors.Error {
	return apperrors.Conflict(fmt.Sprintf("Product %s is no longer available", line.Name)).
		WithDetails(map[string]any{"product_id": line.ProductID.String()})
}

func (s *orderServiceImpl) placeOrderError(order *models.Order, err error) error {
	var stockErr *repository.StockError
	switch {
	case errors.As(err, &stockErr):
		s.opts.count(s.logger, awspkg.MetricOutOfStock)
		return apperrors.OutOfStock("Insufficient stock to complete checkout").
			WithDetails(map[string]any{"product_id": stockErr.ProductID.String()})
	case errors.Is(err, repository.ErrCouponExhausted):
		return apperrors.InvalidPayload("Coupon usage limit exceeded").
			WithDetails(map[string]any{"reason": RejectLimitExceeded})
	default:
		s.logger.Error("Failed to place order",
			zap.String("order_id", order.ID.String()),
			zap.String("user_id", order.UserID),
			zap.Error(err),
		)
		return apperrors.Internal("Failed to process checkout", err)
	}
}

func (s *orderServiceImpl) ListOrders(ctx context.Context, userID string, page, limit int) ([]models.Order, int64, error) {
	orders, total, err := s.orders.FindByUserID(ctx, userID, page, limit)
	if err != nil {
		s.logger.Error("Failed to list orders", zap.String("user_id", userID), zap.Error(err))
		return nil, 0, apperrors.Internal("Failed to list orders", err)
	}
	return orders, total, nil
}
