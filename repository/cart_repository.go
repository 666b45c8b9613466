package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopswift/storefront/models"
)

// ErrCorruptCart is returned when the cached document cannot be decoded.
var ErrCorruptCart = errors.New("corrupt cart document")

// CartRepository stores whole cart documents; the last write wins.
type CartRepository interface {
	Get(ctx context.Context, key models.CartKey) (*models.Cart, error)
	Save(ctx context.Context, key models.CartKey, cart *models.Cart) error
	Delete(ctx context.Context, key models.CartKey) error
}

type RedisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartRepository(client *redis.Client, ttl time.Duration) *RedisCartRepository {
	return &RedisCartRepository{client: client, ttl: ttl}
}

// Get returns nil, nil when no cart is stored under key.
func (r *RedisCartRepository) Get(ctx context.Context, key models.CartKey) (*models.Cart, error) {
	data, err := r.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	var cart models.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCart, err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// Save overwrites the document and restarts its TTL.
func (r *RedisCartRepository) Save(ctx context.Context, key models.CartKey, cart *models.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := r.client.Set(ctx, key.String(), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete is idempotent.
func (r *RedisCartRepository) Delete(ctx context.Context, key models.CartKey) error {
	if err := r.client.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
