package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository using Redis. Each cart
// is stored as its JSON form under cart:<id>; a zero ttl keeps carts forever.
type CartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

var _ repository.CartRepository = (*CartRepository)(nil)

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client *redis.Client, ttl time.Duration) *CartRepository {
	return &CartRepository{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cart by id from Redis.
func (r *CartRepository) Get(ctx context.Context, id string) (domain.Cart, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Cart{}, apperrors.NotFound("cart", id)
		}
		return domain.Cart{}, apperrors.Wrap(err, "redis get cart")
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		// Undecodable stored carts are server faults.
		return domain.Cart{}, apperrors.Internal(apperrors.Wrap(err, "unmarshal cart "+id))
	}
	return cart, nil
}

// Save persists a cart and refreshes its TTL.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return apperrors.Wrap(err, "marshal cart")
	}

	if err := r.client.Set(ctx, keyPrefix+cart.ID(), data, r.ttl).Err(); err != nil {
		return apperrors.Wrap(err, "redis set cart")
	}
	return nil
}

// Delete removes a cart from Redis.
func (r *CartRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return apperrors.Wrap(err, "redis del cart")
	}
	return nil
}

// Exists reports whether the cart key is present.
func (r *CartRepository) Exists(ctx context.Context, id string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+id).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "redis exists cart")
	}
	return n > 0, nil
}
