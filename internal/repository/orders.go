package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/easyshop/internal/domain"
	"github.com/fjod/easyshop/internal/money"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type OrderRepository struct {
	q querier
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (int64, error) {
	query := `INSERT INTO orders (user_id, placed_at, address, city, state, zip, shipping_amount)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING order_id`

	s := o.Shipping()
	var id int64
	err := r.q.QueryRowContext(ctx, query,
		o.UserID(),
		o.PlacedAt(),
		s.Address,
		s.City,
		s.State,
		s.Zip,
		o.ShippingAmount(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

func (r *OrderRepository) CreateLine(ctx context.Context, l domain.OrderLine) error {
	query := `INSERT INTO order_line_items (order_id, product_id, sales_price, quantity, discount)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := r.q.ExecContext(ctx, query,
		l.OrderID(),
		l.ProductID(),
		l.SalesPrice(),
		l.Quantity(),
		l.Discount())
	if err != nil {
		return fmt.Errorf("insert order line: %w", err)
	}
	return nil
}

// orderLines adapts CreateLine to checkout.OrderLineStore.
type orderLines struct {
	r *OrderRepository
}

func (l orderLines) Create(ctx context.Context, line domain.OrderLine) error {
	return l.r.CreateLine(ctx, line)
}

// Get returns the order only when it belongs to userID.
func (r *OrderRepository) Get(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	query := `SELECT order_id, user_id, placed_at, address, city, state, zip, shipping_amount
	          FROM orders WHERE order_id = $1 AND user_id = $2`

	h, err := scanHeader(r.q.QueryRowContext(ctx, query, orderID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("orders.get", "order", orderID, domain.ErrOrderNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	lines, err := r.linesOf(ctx, []int64{h.id})
	if err != nil {
		return nil, err
	}
	return h.restore(lines[h.id]), nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	query := `SELECT order_id, user_id, placed_at, address, city, state, zip, shipping_amount
	          FROM orders WHERE user_id = $1 ORDER BY placed_at DESC, order_id DESC`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query orders by user id: %w", err)
	}
	defer rows.Close()

	var headers []header
	for rows.Next() {
		h, err := scanHeader(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		headers = append(headers, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(headers) == 0 {
		return []*domain.Order{}, nil
	}

	ids := make([]int64, len(headers))
	for i, h := range headers {
		ids[i] = h.id
	}
	lines, err := r.linesOf(ctx, ids)
	if err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, len(headers))
	for i, h := range headers {
		orders[i] = h.restore(lines[h.id])
	}
	return orders, nil
}

func (r *OrderRepository) linesOf(ctx context.Context, orderIDs []int64) (map[int64][]domain.OrderLine, error) {
	query := `SELECT order_id, product_id, sales_price, quantity, discount
	          FROM order_line_items WHERE order_id = ANY($1)
	          ORDER BY order_id, order_line_item_id`

	rows, err := r.q.QueryContext(ctx, query, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.OrderLine, len(orderIDs))
	for rows.Next() {
		var (
			orderID, productID int64
			price              money.Money
			qty                int
			discount           decimal.Decimal
		)
		if err := rows.Scan(&orderID, &productID, &price, &qty, &discount); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		out[orderID] = append(out[orderID], domain.NewOrderLine(orderID, productID, qty, price, discount))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

type header struct {
	id, userID     int64
	placedAt       time.Time
	shipping       domain.ShippingAddress
	shippingAmount money.Money
}

func (h header) restore(lines []domain.OrderLine) *domain.Order {
	return domain.RestoreOrder(h.id, h.userID, h.placedAt.UTC(), h.shipping, h.shippingAmount, lines)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHeader(row rowScanner) (header, error) {
	var h header
	err := row.Scan(
		&h.id,
		&h.userID,
		&h.placedAt,
		&h.shipping.Address,
		&h.shipping.City,
		&h.shipping.State,
		&h.shipping.Zip,
		&h.shippingAmount,
	)
	return h, err
}
