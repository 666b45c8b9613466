package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/models"
	"github.com/shopswift/storefront/repository"
)

// CartService manages the cached cart. Every mutation re-derives the totals
// and re-validates an applied coupon before the document is written back.
type CartService interface {
	GetCart(ctx context.Context, key models.CartKey) (*models.Cart, error)
	AddItem(ctx context.Context, key models.CartKey, productID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, key models.CartKey, productID string) (*models.Cart, error)
	ApplyCoupon(ctx context.Context, key models.CartKey, code string) (*models.Cart, error)
	RemoveCoupon(ctx context.Context, key models.CartKey) (*models.Cart, error)
}

type cartServiceImpl struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	coupons  CouponService
	logger   *zap.Logger
}

func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	coupons CouponService,
	logger *zap.Logger,
) CartService {
	return &cartServiceImpl{
		carts:    carts,
		products: products,
		coupons:  coupons,
		logger:   logger,
	}
}

// GetCart returns the zero cart when nothing usable is stored.
func (s *cartServiceImpl) GetCart(ctx context.Context, key models.CartKey) (*models.Cart, error) {
	return loadCart(ctx, s.carts, key, s.logger)
}

func (s *cartServiceImpl) AddItem(ctx context.Context, key models.CartKey, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return nil, apperrors.InvalidPayload("Quantity must be a positive integer")
	}

	product, err := s.products.FindByID(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Product not found")
	}
	if err != nil {
		s.logger.Error("Failed to load product", zap.String("product_id", productID.String()), zap.Error(err))
		return nil, apperrors.Internal("Failed to add item", err)
	}

	cart, err := loadCart(ctx, s.carts, key, s.logger)
	if err != nil {
		return nil, err
	}

	// Stock is checked against the cumulative quantity, not just the increment.
	idx := cart.FindItem(productID)
	requested := quantity
	if idx >= 0 {
		requested += cart.Items[idx].Quantity
	}
	if product.Stock < requested {
		return nil, apperrors.OutOfStock(fmt.Sprintf("Insufficient stock for %s", product.Name)).
			WithDetails(map[string]any{
				"product_id": productID.String(),
				"requested":  requested,
				"available":  product.Stock,
			})
	}

	// The price snapshot is taken once, when the line is first added.
	if idx >= 0 {
		cart.Items[idx].Quantity = requested
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  requested,
		})
	}

	return s.recomputeAndSave(ctx, key, cart)
}

// RemoveItem is a no-op for products that are not in the cart.
func (s *cartServiceImpl) RemoveItem(ctx context.Context, key models.CartKey, productID string) (*models.Cart, error) {
	cart, err := loadCart(ctx, s.carts, key, s.logger)
	if err != nil {
		return nil, err
	}

	if id, err := uuid.Parse(productID); err == nil {
		kept := cart.Items[:0]
		for _, item := range cart.Items {
			if item.ProductID != id {
				kept = append(kept, item)
			}
		}
		cart.Items = kept
	}

	return s.recomputeAndSave(ctx, key, cart)
}

// ApplyCoupon surfaces rejections to the caller, unlike recompute which
// drops a coupon that stopped qualifying.
func (s *cartServiceImpl) ApplyCoupon(ctx context.Context, key models.CartKey, code string) (*models.Cart, error) {
	cart, err := loadCart(ctx, s.carts, key, s.logger)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperrors.InvalidPayload("Cannot apply a coupon to an empty cart")
	}

	subtotal := cart.ItemsSubtotal()
	validation, err := s.coupons.Validate(ctx, code, subtotal)
	if err != nil {
		var rejection *CouponRejection
		if errors.As(err, &rejection) {
			return nil, rejection.AppError()
		}
		return nil, err
	}

	cart.CouponCode = &validation.Coupon.Code
	cart.Message = ""
	cart.SetTotals(subtotal, validation.Discount)
	if err := s.save(ctx, key, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *cartServiceImpl) RemoveCoupon(ctx context.Context, key models.CartKey) (*models.Cart, error) {
	cart, err := loadCart(ctx, s.carts, key, s.logger)
	if err != nil {
		return nil, err
	}
	cart.CouponCode = nil
	return s.recomputeAndSave(ctx, key, cart)
}

func (s *cartServiceImpl) recomputeAndSave(ctx context.Context, key models.CartKey, cart *models.Cart) (*models.Cart, error) {
	if err := s.recompute(ctx, cart); err != nil {
		return nil, err
	}
	if err := s.save(ctx, key, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// recompute derives subtotal, discount and total. A coupon that no longer
// qualifies is removed and the reason is left in cart.Message.
func (s *cartServiceImpl) recompute(ctx context.Context, cart *models.Cart) error {
	cart.Message = ""
	subtotal := cart.ItemsSubtotal()
	discount := decimal.Zero

	if cart.CouponCode != nil {
		validation, err := s.coupons.Validate(ctx, *cart.CouponCode, subtotal)
		var rejection *CouponRejection
		switch {
		case errors.As(err, &rejection):
			s.logger.Info("Coupon removed from cart",
				zap.String("code", *cart.CouponCode),
				zap.String("reason", string(rejection.Reason)),
			)
			cart.CouponCode = nil
			cart.Message = "Coupon removed: " + rejection.Message
		case err != nil:
			return err
		default:
			discount = validation.Discount
		}
	}

	cart.SetTotals(subtotal, discount)
	return nil
}

func (s *cartServiceImpl) save(ctx context.Context, key models.CartKey, cart *models.Cart) error {
	if err := s.carts.Save(ctx, key, cart); err != nil {
		s.logger.Error("Failed to save cart", zap.String("key", key.String()), zap.Error(err))
		return apperrors.Internal("Failed to save cart", err)
	}
	return nil
}

// loadCart treats a missing or undecodable document as an empty cart.
func loadCart(ctx context.Context, carts repository.CartRepository, key models.CartKey, logger *zap.Logger) (*models.Cart, error) {
	cart, err := carts.Get(ctx, key)
	switch {
	case errors.Is(err, repository.ErrCorruptCart):
		logger.Warn("Discarding unreadable cart", zap.String("key", key.String()), zap.Error(err))
		return models.NewCart(), nil
	case err != nil:
		logger.Error("Failed to load cart", zap.String("key", key.String()), zap.Error(err))
		return nil, apperrors.Internal("Failed to load cart", err)
	case cart == nil:
		return models.NewCart(), nil
	}
	return cart, nil
}
