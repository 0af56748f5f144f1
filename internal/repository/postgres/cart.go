package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CartRepository implements repository.CartRepository using PostgreSQL.
// Lines live in cart_items and keep their insertion order via position.
type CartRepository struct {
	pool database.DBTX
}

var _ repository.CartRepository = (*CartRepository)(nil)

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get loads a cart and its lines.
func (r *CartRepository) Get(ctx context.Context, id string) (_ domain.Cart, err error) {
	query := `
		SELECT c.created_at, ci.product_id, ci.quantity
		FROM carts c
		LEFT JOIN cart_items ci ON ci.cart_id = c.id
		WHERE c.id = $1
		ORDER BY ci.position`
	ctx, end := database.TraceQuery(ctx, "GetCart", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	defer rows.Close()

	var (
		found     bool
		createdAt time.Time
		items     []domain.CartItem
	)
	for rows.Next() {
		var productID, quantity *int
		if err := rows.Scan(&createdAt, &productID, &quantity); err != nil {
			return domain.Cart{}, fmt.Errorf("scan cart row: %w", err)
		}
		found = true
		if productID == nil || quantity == nil {
			continue
		}
		item, err := toCartItem(*productID, *quantity)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("decode cart %s: %w", id, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("iterate cart rows: %w", err)
	}
	if !found {
		return domain.Cart{}, apperrors.NotFound("cart", id)
	}

	return domain.RestoreCart(id, items, createdAt)
}

// Save replaces the stored cart and all of its lines in one transaction.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) (err error) {
	ctx, end := database.TraceQuery(ctx, "SaveCart", "UPSERT carts; REPLACE cart_items")
	defer func() { end(err) }()

	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO carts (id, created_at, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
			cart.ID(), cart.CreatedAt(), utcNow(),
		)
		if err != nil {
			return fmt.Errorf("upsert cart: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cart.ID()); err != nil {
			return fmt.Errorf("clear cart items: %w", err)
		}

		for pos, item := range cart.Items() {
			_, err := tx.Exec(ctx, `
				INSERT INTO cart_items (cart_id, position, product_id, quantity)
				VALUES ($1, $2, $3, $4)`,
				cart.ID(), pos, item.ProductID().Value(), item.Quantity().Value(),
			)
			if err != nil {
				return fmt.Errorf("insert cart item: %w", err)
			}
		}
		return nil
	})
}

// Delete removes a cart; its lines cascade.
func (r *CartRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM carts WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "DeleteCart", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// Exists reports whether the cart row is present.
func (r *CartRepository) Exists(ctx context.Context, id string) (_ bool, err error) {
	query := `SELECT EXISTS(SELECT 1 FROM carts WHERE id = $1)`
	ctx, end := database.TraceQuery(ctx, "CartExists", query)
	defer func() { end(err) }()

	var exists bool
	if err = r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check cart exists: %w", err)
	}
	return exists, nil
}

func toCartItem(productID, quantity int) (domain.CartItem, error) {
	pid, err := domain.NewPositiveInt(productID)
	if err != nil {
		return domain.CartItem{}, err
	}
	qty, err := domain.NewQuantity(quantity)
	if err != nil {
		return domain.CartItem{}, err
	}
	return domain.NewCartItem(pid, qty)
}
