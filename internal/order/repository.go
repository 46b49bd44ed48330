package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository interface {
	// Create stores o. When o.IdempotencyKey matches an existing order, o is
	// replaced by the stored order and replayed is true.
	Create(ctx context.Context, o *Order) (replayed bool, err error)
	GetByID(ctx context.Context, orderID string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const orderColumns = `id, user_id, email, total, shipping_address, billing_address, payment_method,
	COALESCE(payment_reference, ''), status, COALESCE(idempotency_key, ''), created_at`

func (r *PostgresRepository) Create(ctx context.Context, o *Order) (bool, error) {
	shipping, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return false, fmt.Errorf("encode shipping address: %w", err)
	}
	billing, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return false, fmt.Errorf("encode billing address: %w", err)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (id, user_id, email, total, shipping_address, billing_address,
			payment_method, payment_reference, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, NULLIF($10, ''))
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING created_at
	`, o.ID, o.UserID, o.Email, o.Total, shipping, billing,
		o.PaymentMethod, o.PaymentReference, string(o.Status), o.IdempotencyKey,
	).Scan(&o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, err := r.getByKey(ctx, tx, o.IdempotencyKey)
		if err != nil {
			return false, err
		}
		*o = existing
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert order: %w", err)
	}

	for i, it := range o.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO order_items (order_id, position, product_id, name, image, price, quantity, size, color)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, o.ID, i, it.ProductID, it.Name, it.Image, it.Price, it.Quantity, it.Size, it.Color)
		if err != nil {
			return false, fmt.Errorf("insert order_item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return false, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, orderID string) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return Order{}, err
	}
	if err := r.loadItems(ctx, r.pool, []*Order{&o}); err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	ptrs := make([]*Order, len(orders))
	for i := range orders {
		ptrs[i] = &orders[i]
	}
	if err := r.loadItems(ctx, r.pool, ptrs); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *PostgresRepository) getByKey(ctx context.Context, q querier, key string) (Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key))
	if err != nil {
		return Order{}, err
	}
	if err := r.loadItems(ctx, q, []*Order{&o}); err != nil {
		return Order{}, err
	}
	return o, nil
}

// loadItems fills Items for every order with one query.
func (r *PostgresRepository) loadItems(ctx context.Context, q querier, orders []*Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []Item{}
	}

	rows, err := q.Query(ctx, `
		SELECT order_id, product_id, name, image, price, quantity, size, color
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("select order_items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var it Item
		if err := rows.Scan(&orderID, &it.ProductID, &it.Name, &it.Image, &it.Price, &it.Quantity, &it.Size, &it.Color); err != nil {
			return fmt.Errorf("scan order_item: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows: %w", err)
	}
	return nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                 Order
		status            string
		shipping, billing []byte
	)
	err := row.Scan(&o.ID, &o.UserID, &o.Email, &o.Total, &shipping, &billing, &o.PaymentMethod,
		&o.PaymentReference, &status, &o.IdempotencyKey, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.Status = Status(status)
	if err := json.Unmarshal(shipping, &o.ShippingAddress); err != nil {
		return Order{}, fmt.Errorf("decode shipping address: %w", err)
	}
	if err := json.Unmarshal(billing, &o.BillingAddress); err != nil {
		return Order{}, fmt.Errorf("decode billing address: %w", err)
	}
	return o, nil
}
