package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/shopswift/storefront/common/errors"
	"github.com/shopswift/storefront/models"
	"github.com/shopswift/storefront/repository"
)

// RejectionReason says why a coupon cannot be used.
type RejectionReason string

const (
	RejectNotFound      RejectionReason = "NOT_FOUND"
	RejectInactive      RejectionReason = "INACTIVE"
	RejectExpired       RejectionReason = "EXPIRED"
	RejectLimitExceeded RejectionReason = "LIMIT_EXCEEDED"
	RejectBelowMinimum  RejectionReason = "BELOW_MINIMUM"
)

// CouponRejection is returned by Validate when the coupon exists in some form
// but cannot be applied to the amount. Callers decide whether to surface it.
type CouponRejection struct {
	Reason  RejectionReason
	Message string
}

func (r *CouponRejection) Error() string {
	return r.Message
}

// AppError maps a rejection to the client-facing error.
func (r *CouponRejection) AppError() *apperrors.Error {
	if r.Reason == RejectNotFound {
		return apperrors.NotFound(r.Message)
	}
	return apperrors.InvalidPayload(r.Message).WithDetails(map[string]any{"reason": r.Reason})
}

// CouponValidation is an accepted coupon and the discount it grants.
type CouponValidation struct {
	Coupon   *models.Coupon
	Discount decimal.Decimal
}

// CouponService defines the interface for coupon business logic.
type CouponService interface {
	// Validate checks code against amount. It returns a *CouponRejection for
	// business rejections and an *apperrors.Error for anything else.
	Validate(ctx context.Context, code string, amount decimal.Decimal) (*CouponValidation, error)
	CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error)
	ListCoupons(ctx context.Context, page, limit int) ([]models.Coupon, int64, error)
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
	// ValidateCoupon wraps Validate for clients. Rejections are reported in
	// the response rather than as errors.
	ValidateCoupon(ctx context.Context, req *models.ValidateCouponRequest) (*models.ValidateCouponResponse, error)
	DeactivateCoupon(ctx context.Context, code string) error
}

type couponServiceImpl struct {
	repo   repository.CouponRepository
	logger *zap.Logger
	opts   options
}

func NewCouponService(repo repository.CouponRepository, logger *zap.Logger, opts ...Option) CouponService {
	return &couponServiceImpl{
		repo:   repo,
		logger: logger,
		opts:   buildOptions(opts),
	}
}

var hundred = decimal.NewFromInt(100)

func (s *couponServiceImpl) Validate(ctx context.Context, code string, amount decimal.Decimal) (*CouponValidation, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &CouponRejection{Reason: RejectNotFound, Message: "Coupon not found"}
	}
	if err != nil {
		s.logger.Error("Failed to load coupon", zap.String("code", code), zap.Error(err))
		return nil, apperrors.Internal("Failed to validate coupon", err)
	}

	if !coupon.Active {
		return nil, &CouponRejection{Reason: RejectInactive, Message: "Coupon is inactive"}
	}
	if s.opts.now().After(coupon.ExpirationDate) {
		return nil, &CouponRejection{Reason: RejectExpired, Message: "Coupon has expired"}
	}
	if coupon.LimitReached() {
		return nil, &CouponRejection{Reason: RejectLimitExceeded, Message: "Coupon usage limit exceeded"}
	}
	if coupon.MinPurchase.Valid && amount.LessThan(coupon.MinPurchase.Decimal) {
		return nil, &CouponRejection{
			Reason:  RejectBelowMinimum,
			Message: fmt.Sprintf("Minimum purchase of %s required", coupon.MinPurchase.Decimal.StringFixed(2)),
		}
	}

	return &CouponValidation{Coupon: coupon, Discount: discountFor(coupon, amount)}, nil
}

// discountFor never exceeds amount and is rounded half-up to cents.
func discountFor(coupon *models.Coupon, amount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Type {
	case models.CouponTypePercentage:
		discount = amount.Mul(coupon.Value).Div(hundred)
	default:
		discount = coupon.Value
	}
	discount = decimal.Min(discount, amount)
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount.Round(2)
}

func (s *couponServiceImpl) CreateCoupon(ctx context.Context, req *models.CreateCouponRequest) (*models.Coupon, error) {
	if !req.Value.IsPositive() {
		return nil, apperrors.InvalidPayload("Coupon value must be positive")
	}
	if req.Type == models.CouponTypePercentage && req.Value.GreaterThan(hundred) {
		return nil, apperrors.InvalidPayload("Percentage discount cannot exceed 100")
	}
	if !req.ExpirationDate.After(s.opts.now()) {
		return nil, apperrors.InvalidPayload("Expiration date must be in the future")
	}

	coupon := &models.Coupon{
		Code:           strings.ToUpper(strings.TrimSpace(req.Code)),
		Type:           req.Type,
		Value:          req.Value,
		UsageLimit:     req.UsageLimit,
		ExpirationDate: req.ExpirationDate,
		Active:         true,
	}
	if req.MinPurchase != nil {
		if req.MinPurchase.IsNegative() {
			return nil, apperrors.InvalidPayload("Minimum purchase cannot be negative")
		}
		coupon.MinPurchase = decimal.NewNullDecimal(*req.MinPurchase)
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("Coupon code already exists")
		}
		s.logger.Error("Failed to create coupon", zap.Error(err))
		return nil, apperrors.Internal("Failed to create coupon", err)
	}

	s.logger.Info("Coupon created", zap.String("code", coupon.Code), zap.String("type", string(coupon.Type)))
	return coupon, nil
}

func (s *couponServiceImpl) ListCoupons(ctx context.Context, page, limit int) ([]models.Coupon, int64, error) {
	coupons, total, err := s.repo.FindAll(ctx, page, limit)
	if err != nil {
		s.logger.Error("Failed to list coupons", zap.Error(err))
		return nil, 0, apperrors.Internal("Failed to list coupons", err)
	}
	return coupons, total, nil
}

func (s *couponServiceImpl) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Coupon not found")
	}
	if err != nil {
		s.logger.Error("Failed to load coupon", zap.String("code", code), zap.Error(err))
		return nil, apperrors.Internal("Failed to load coupon", err)
	}
	return coupon, nil
}

func (s *couponServiceImpl) ValidateCoupon(ctx context.Context, req *models.ValidateCouponRequest) (*models.ValidateCouponResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	validation, err := s.Validate(ctx, code, req.Amount)

	var rejection *CouponRejection
	if errors.As(err, &rejection) {
		return &models.ValidateCouponResponse{
			Valid:    false,
			Code:     code,
			Discount: decimal.Zero,
			Reason:   string(rejection.Reason),
			Message:  rejection.Message,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &models.ValidateCouponResponse{
		Valid:    true,
		Code:     validation.Coupon.Code,
		Type:     validation.Coupon.Type,
		Discount: validation.Discount,
	}, nil
}

// DeactivateCoupon turns a coupon off. Carts holding it drop it on their
// next recompute.
func (s *couponServiceImpl) DeactivateCoupon(ctx context.Context, code string) error {
	err := s.repo.Deactivate(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("Coupon not found")
	}
	if err != nil {
		s.logger.Error("Failed to deactivate coupon", zap.String("code", code), zap.Error(err))
		return apperrors.Internal("Failed to deactivate coupon", err)
	}
	s.logger.Info("Coupon deactivated", zap.String("code", strings.ToUpper(code)))
	return nil
}
