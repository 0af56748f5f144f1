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

const productColumns = `id, name, price_amount::text, currency, stock, created_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the whole catalog ordered by id.
func (r *ProductRepository) List(ctx context.Context) (_ []domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`
	ctx, end := database.TraceQuery(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return collectProducts(rows)
}

// GetByID retrieves a product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id domain.PositiveInt) (_ domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id.Value()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, apperrors.NotFound("product", id.String())
		}
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// GetByIDs returns the existing products among ids.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []domain.PositiveInt) (_ []domain.Product, err error) {
	if len(ids) == 0 {
		return []domain.Product{}, nil
	}

	query := `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1) ORDER BY id`
	ctx, end := database.TraceQuery(ctx, "GetProductsByIDs", query)
	defer func() { end(err) }()

	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id.Value())
	}

	rows, err := r.pool.Query(ctx, query, raw)
	if err != nil {
		return nil, fmt.Errorf("get products by ids: %w", err)
	}
	return collectProducts(rows)
}

// Save upserts a product.
func (r *ProductRepository) Save(ctx context.Context, p domain.Product) (err error) {
	query := `
		INSERT INTO products (id, name, price_amount, currency, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price_amount = EXCLUDED.price_amount,
			currency = EXCLUDED.currency,
			stock = EXCLUDED.stock,
			updated_at = EXCLUDED.updated_at`
	ctx, end := database.TraceQuery(ctx, "SaveProduct", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		p.ID().Value(),
		p.Name(),
		p.Price().Amount().String(),
		p.Price().Currency().Code(),
		p.Stock().Value(),
		p.CreatedAt(),
		utcNow(),
	)
	if err != nil {
		return fmt.Errorf("save product %s: %w", p.ID(), err)
	}
	return nil
}

// ReduceStock decrements stock with a guarded UPDATE so concurrent
// checkouts cannot oversell.
func (r *ProductRepository) ReduceStock(ctx context.Context, id, quantity domain.PositiveInt) (_ domain.Product, err error) {
	query := `
		UPDATE products SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
		RETURNING ` + productColumns
	ctx, end := database.TraceQuery(ctx, "ReduceStock", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id.Value(), quantity.Value(), utcNow()))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("reduce stock of product %s: %w", id, err)
	}

	// Either the product is gone or its stock is short; let the domain
	// produce the precise error.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if _, err := current.ReduceStock(quantity); err != nil {
		return domain.Product{}, err
	}
	return domain.Product{}, apperrors.Conflict(fmt.Sprintf("stock of product %s changed concurrently", id))
}

// IncreaseStock increments stock.
func (r *ProductRepository) IncreaseStock(ctx context.Context, id, quantity domain.PositiveInt) (_ domain.Product, err error) {
	query := `
		UPDATE products SET stock = stock + $2, updated_at = $3
		WHERE id = $1
		RETURNING ` + productColumns
	ctx, end := database.TraceQuery(ctx, "IncreaseStock", query)
	defer func() { end(err) }()

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id.Value(), quantity.Value(), utcNow()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, apperrors.NotFound("product", id.String())
		}
		return domain.Product{}, fmt.Errorf("increase stock of product %s: %w", id, err)
	}
	return p, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		id        int
		name      string
		amount    string
		currency  string
		stock     int
		createdAt time.Time
	)
	if err := row.Scan(&id, &name, &amount, &currency, &stock, &createdAt); err != nil {
		return domain.Product{}, err
	}
	return toProduct(id, name, amount, currency, stock, createdAt)
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func toProduct(id int, name, amount, currency string, stock int, createdAt time.Time) (domain.Product, error) {
	pid, err := domain.NewPositiveInt(id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("decode product id: %w", err)
	}
	price, err := money(amount, currency)
	if err != nil {
		return domain.Product{}, err
	}
	qty, err := domain.NewPositiveInt(stock)
	if err != nil {
		return domain.Product{}, fmt.Errorf("decode stock of product %d: %w", id, err)
	}
	return domain.NewProduct(pid, name, price, qty, createdAt)
}
