package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

const orderColumns = `id, cart_id, status, subtotal_amount::text, shipping_amount::text, total_amount::text, currency, created_at, updated_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts an order and its lines atomically.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateOrder", "INSERT INTO orders; INSERT INTO order_lines")
	defer func() { end(err) }()

	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, cart_id, status, subtotal_amount, shipping_amount, total_amount, currency, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			o.ID,
			o.CartID,
			o.Status,
			o.Subtotal.Amount().String(),
			o.Shipping.Amount().String(),
			o.Total.Amount().String(),
			o.Currency().Code(),
			o.CreatedAt,
			o.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.Conflict(fmt.Sprintf("order %s already exists", o.ID))
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for i, l := range o.Lines {
			_, err := tx.Exec(ctx, `
				INSERT INTO order_lines (order_id, line_no, product_id, product_name, quantity, unit_price, line_total)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				o.ID,
				i,
				l.ProductID.Value(),
				l.ProductName,
				l.Quantity.Value(),
				l.UnitPrice.Amount().String(),
				l.LineTotal.Amount().String(),
			)
			if err != nil {
				return fmt.Errorf("insert order line: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves an order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	ctx, end := database.TraceQuery(ctx, "GetOrder", query)
	defer func() { end(err) }()

	o, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	lines, err := r.loadLines(ctx, []*domain.Order{&o})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	if o.Lines == nil {
		o.Lines = []domain.OrderLine{}
	}
	return &o, nil
}

// List returns a page of orders, newest first, with the total count.
func (r *OrderRepository) List(ctx context.Context, filter repository.OrderFilter) (_ []domain.Order, _ int, err error) {
	var (
		conditions []string
		args       []any
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	page := pagination.New(filter.Page, filter.PerPage)
	args = append(args, page.PerPage, page.Offset)

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM orders
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)-1, len(args),
	)
	ctx, end := database.TraceQuery(ctx, "ListOrders", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var total int
	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate order rows: %w", err)
	}
	rows.Close()

	if len(orders) == 0 {
		return orders, total, nil
	}

	refs := make([]*domain.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	lines, err := r.loadLines(ctx, refs)
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
		if orders[i].Lines == nil {
			orders[i].Lines = []domain.OrderLine{}
		}
	}

	return orders, total, nil
}

// UpdateStatus changes the status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) (err error) {
	query := `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`
	ctx, end := database.TraceQuery(ctx, "UpdateOrderStatus", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, status, utcNow(), id)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("order", id)
	}
	return nil
}

// loadLines batch-loads lines for orders in a single query, keyed by order id.
func (r *OrderRepository) loadLines(ctx context.Context, orders []*domain.Order) (map[string][]domain.OrderLine, error) {
	ids := make([]string, len(orders))
	currencies := make(map[string]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		currencies[o.ID] = o.Currency().Code()
	}

	rows, err := r.pool.Query(ctx, `
		SELECT order_id, product_id, product_name, quantity, unit_price::text, line_total::text
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY order_id, line_no`, ids)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.OrderLine, len(orders))
	for rows.Next() {
		var (
			orderID, name       string
			productID, quantity int
			unitPrice, total    string
		)
		if err := rows.Scan(&orderID, &productID, &name, &quantity, &unitPrice, &total); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		line, err := toOrderLine(productID, name, quantity, unitPrice, total, currencies[orderID])
		if err != nil {
			return nil, fmt.Errorf("decode line of order %s: %w", orderID, err)
		}
		out[orderID] = append(out[orderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return out, nil
}

// scanOrder reads orderColumns plus any extra destinations.
func scanOrder(row pgx.Row, extra ...any) (domain.Order, error) {
	var (
		o                         domain.Order
		subtotal, shipping, total string
		currency                  string
	)
	dest := append([]any{
		&o.ID, &o.CartID, &o.Status, &subtotal, &shipping, &total, &currency, &o.CreatedAt, &o.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Order{}, err
	}

	var err error
	if o.Subtotal, err = money(subtotal, currency); err != nil {
		return domain.Order{}, err
	}
	if o.Shipping, err = money(shipping, currency); err != nil {
		return domain.Order{}, err
	}
	if o.Total, err = money(total, currency); err != nil {
		return domain.Order{}, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}

func toOrderLine(productID int, name string, quantity int, unitPrice, lineTotal, currency string) (domain.OrderLine, error) {
	pid, err := domain.NewPositiveInt(productID)
	if err != nil {
		return domain.OrderLine{}, err
	}
	qty, err := domain.NewQuantity(quantity)
	if err != nil {
		return domain.OrderLine{}, err
	}
	unit, err := money(unitPrice, currency)
	if err != nil {
		return domain.OrderLine{}, err
	}
	total, err := money(lineTotal, currency)
	if err != nil {
		return domain.OrderLine{}, err
	}
	return domain.OrderLine{
		ProductID:   pid,
		ProductName: name,
		Quantity:    qty,
		UnitPrice:   unit,
		LineTotal:   total,
	}, nil
}
