package services_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/shopswift/storefront/events"
	"github.com/shopswift/storefront/models"
	"github.com/shopswift/storefront/repository"
)

// store is an in-memory stand-in for Postgres shared by the fake repositories.
type store struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	coupons  map[string]*models.Coupon
	orders   map[uuid.UUID]*models.Order
	payments map[uuid.UUID]*models.Payment
	failTx   error
}

func newStore() *store {
	return &store{
		products: make(map[uuid.UUID]*models.Product),
		coupons:  make(map[string]*models.Coupon),
		orders:   make(map[uuid.UUID]*models.Order),
		payments: make(map[uuid.UUID]*models.Payment),
	}
}

func (s *store) addProduct(name, price string, stock int) *models.Product {
	p := &models.Product{
		ID:     uuid.New(),
		Name:   name,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Status: models.ProductStatusActive,
	}
	s.mu.Lock()
	s.products[p.ID] = p
	s.mu.Unlock()
	return p
}

func (s *store) addCoupon(c *models.Coupon) *models.Coupon {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	s.mu.Lock()
	s.coupons[strings.ToUpper(c.Code)] = c
	s.mu.Unlock()
	return c
}

func (s *store) stockOf(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *store) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// --- ProductRepository ---

type productRepo struct{ s *store }

func (r productRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r productRepo) Create(_ context.Context, p *models.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = p
	return nil
}

func (r productRepo) DecrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.Stock < quantity {
		return &repository.StockError{ProductID: id}
	}
	p.Stock -= quantity
	return nil
}

// --- CouponRepository ---

type couponRepo struct{ s *store }

func (r couponRepo) Create(_ context.Context, c *models.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.coupons[strings.ToUpper(c.Code)]; exists {
		return repository.ErrDuplicate
	}
	c.ID = uuid.New()
	r.s.coupons[strings.ToUpper(c.Code)] = c
	return nil
}

func (r couponRepo) FindByCode(_ context.Context, code string) (*models.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r couponRepo) FindAll(_ context.Context, _, _ int) ([]models.Coupon, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Coupon
	for _, c := range r.s.coupons {
		out = append(out, *c)
	}
	return out, int64(len(out)), nil
}

func (r couponRepo) IncrementUsage(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.coupons {
		if c.ID == id {
			if c.LimitReached() {
				return repository.ErrCouponExhausted
			}
			c.UsageCount++
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r couponRepo) Deactivate(_ context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return repository.ErrNotFound
	}
	c.Active = false
	return nil
}

// --- OrderRepository ---

type orderRepo struct{ s *store }

func (r orderRepo) Create(_ context.Context, o *models.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orders[o.ID] = o
	return nil
}

func (r orderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r orderRepo) FindByUserID(_ context.Context, userID string, _, _ int) ([]models.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.Order
	for _, o := range r.s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

// --- PaymentRepository ---

type paymentRepo struct{ s *store }

func (r paymentRepo) Create(_ context.Context, p *models.Payment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.payments {
		if existing.OrderID == p.OrderID {
			return repository.ErrDuplicate
		}
	}
	r.s.payments[p.ID] = p
	return nil
}

func (r paymentRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r paymentRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.payments {
		if p.OrderID == orderID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- UnitOfWork ---

// unitOfWork applies all writes under one lock, or none of them.
type unitOfWork struct{ s *store }

func (u unitOfWork) PlaceOrder(_ context.Context, order *models.Order) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()

	if u.s.failTx != nil {
		return u.s.failTx
	}
	for _, item := range order.Items {
		p, ok := u.s.products[item.ProductID]
		if !ok || p.Stock < item.Quantity {
			return &repository.StockError{ProductID: item.ProductID}
		}
	}
	var coupon *models.Coupon
	if order.CouponID != nil {
		for _, c := range u.s.coupons {
			if c.ID == *order.CouponID {
				coupon = c
			}
		}
		if coupon == nil || coupon.LimitReached() {
			return repository.ErrCouponExhausted
		}
	}

	for _, item := range order.Items {
		u.s.products[item.ProductID].Stock -= item.Quantity
	}
	if coupon != nil {
		coupon.UsageCount++
	}
	payment := &models.Payment{ID: uuid.New(), OrderID: order.ID, Status: models.PaymentStatusAwaitingConfirmation}
	order.Payment = payment
	u.s.orders[order.ID] = order
	u.s.payments[payment.ID] = payment
	return nil
}

func (u unitOfWork) MarkPaid(_ context.Context, paymentID uuid.UUID, key string) (*models.Payment, bool, error) {
	return u.transition(paymentID, func(p *models.Payment, o *models.Order) {
		now := time.Now()
		p.Status = models.PaymentStatusPaid
		p.IdempotencyKey = &key
		p.PaidAt = &now
		o.Status = models.OrderStatusPaid
	})
}

func (u unitOfWork) MarkCanceled(_ context.Context, paymentID uuid.UUID) (*models.Payment, bool, error) {
	return u.transition(paymentID, func(p *models.Payment, o *models.Order) {
		now := time.Now()
		p.Status = models.PaymentStatusCanceled
		p.CanceledAt = &now
		o.Status = models.OrderStatusCanceled
	})
}

func (u unitOfWork) transition(paymentID uuid.UUID, apply func(*models.Payment, *models.Order)) (*models.Payment, bool, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	p, ok := u.s.payments[paymentID]
	if !ok {
		return nil, false, repository.ErrNotFound
	}
	if p.IsTerminal() {
		cp := *p
		return &cp, false, nil
	}
	apply(p, u.s.orders[p.OrderID])
	cp := *p
	return &cp, true, nil
}

// --- Events ---

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (e *recordingEmitter) Emit(_ context.Context, event events.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *recordingEmitter) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

// --- Helpers ---

func newCartRepo(t *testing.T) (*repository.RedisCartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return repository.NewRedisCartRepository(client, 30*24*time.Hour), mr
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(n int) *int { return &n }

func newNullDecimal(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}
