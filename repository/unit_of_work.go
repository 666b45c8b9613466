package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopswift/storefront/models"
)

// UnitOfWork groups the writes that must commit or roll back together.
type UnitOfWork interface {
	// PlaceOrder decrements stock for every item, redeems the order's coupon,
	// and inserts the order, its items and an AWAITING_CONFIRMATION payment.
	PlaceOrder(ctx context.Context, order *models.Order) error
	// MarkPaid moves an awaiting payment and its order to PAID. applied is
	// false when the payment was already terminal; it is then returned as is.
	MarkPaid(ctx context.Context, paymentID uuid.UUID, idempotencyKey string) (payment *models.Payment, applied bool, err error)
	// MarkCanceled moves an awaiting payment and its order to CANCELED.
	MarkCanceled(ctx context.Context, paymentID uuid.UUID) (payment *models.Payment, applied bool, err error)
}

type GormUnitOfWork struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db, now: time.Now}
}

func (u *GormUnitOfWork) PlaceOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	// Lock product rows in a stable order so two checkouts sharing products
	// cannot deadlock.
	lines := make([]models.OrderItem, len(order.Items))
	copy(lines, order.Items)
	sort.Slice(lines, func(i, j int) bool {
		return bytes.Compare(lines[i].ProductID[:], lines[j].ProductID[:]) < 0
	})

	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := NewGormProductRepository(tx)
		for _, line := range lines {
			if err := products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		if order.CouponID != nil {
			if err := NewGormCouponRepository(tx).IncrementUsage(ctx, *order.CouponID); err != nil {
				return err
			}
		}

		if err := NewGormOrderRepository(tx).Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		payment := &models.Payment{
			ID:      uuid.New(),
			OrderID: order.ID,
			Status:  models.PaymentStatusAwaitingConfirmation,
		}
		if err := NewGormPaymentRepository(tx).Create(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		order.Payment = payment
		return nil
	})
}

func (u *GormUnitOfWork) MarkPaid(ctx context.Context, paymentID uuid.UUID, idempotencyKey string) (*models.Payment, bool, error) {
	return u.transition(ctx, paymentID, models.OrderStatusPaid, func(p *models.Payment, now time.Time) map[string]interface{} {
		p.Status = models.PaymentStatusPaid
		p.IdempotencyKey = &idempotencyKey
		p.PaidAt = &now
		return map[string]interface{}{
			"status":          models.PaymentStatusPaid,
			"idempotency_key": idempotencyKey,
			"paid_at":         now,
			"updated_at":      now,
		}
	})
}

func (u *GormUnitOfWork) MarkCanceled(ctx context.Context, paymentID uuid.UUID) (*models.Payment, bool, error) {
	return u.transition(ctx, paymentID, models.OrderStatusCanceled, func(p *models.Payment, now time.Time) map[string]interface{} {
		p.Status = models.PaymentStatusCanceled
		p.CanceledAt = &now
		return map[string]interface{}{
			"status":      models.PaymentStatusCanceled,
			"canceled_at": now,
			"updated_at":  now,
		}
	})
}

// transition locks the payment row, so concurrent confirms and cancels of the
// same payment serialize and only the first one applies.
func (u *GormUnitOfWork) transition(
	ctx context.Context,
	paymentID uuid.UUID,
	orderStatus models.OrderStatus,
	apply func(p *models.Payment, now time.Time) map[string]interface{},
) (*models.Payment, bool, error) {
	var payment models.Payment
	applied := false

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", paymentID).
			First(&payment).Error; err != nil {
			return translate(err)
		}
		if payment.IsTerminal() {
			return nil
		}

		now := u.now().UTC()
		if err := tx.Model(&models.Payment{}).
			Where("id = ?", payment.ID).
			UpdateColumns(apply(&payment, now)).Error; err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		if err := tx.Model(&models.Order{}).
			Where("id = ?", payment.OrderID).
			UpdateColumns(map[string]interface{}{"status": orderStatus, "updated_at": now}).Error; err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		payment.UpdatedAt = now
		applied = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &payment, applied, nil
}
