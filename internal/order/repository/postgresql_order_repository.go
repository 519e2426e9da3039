// Package repository provides data persistence implementations for orders.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/database"
	apperrors "github.com/allisson/ordersaga/internal/errors"
	"github.com/allisson/ordersaga/internal/order/domain"
)

const postgresOrderColumns = `id, user_id, total_amount, discount_amount, final_amount, user_coupon_id, status, created_at`

// PostgreSQLOrderRepository handles order persistence for PostgreSQL
type PostgreSQLOrderRepository struct {
	db *sql.DB
}

// NewPostgreSQLOrderRepository creates a new PostgreSQLOrderRepository
func NewPostgreSQLOrderRepository(db *sql.DB) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{db: db}
}

// Create inserts the order and its items. Callers run it inside a transaction
// so a partially written order is never visible.
func (r *PostgreSQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO orders (id, user_id, total_amount, discount_amount, final_amount, user_coupon_id, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(ctx, query,
		order.ID, order.UserID, order.TotalAmount, order.DiscountAmount, order.FinalAmount,
		order.UserCouponID, order.Status, order.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create order")
	}

	itemQuery := `INSERT INTO order_items (order_id, line_no, product_id, product_name, quantity, unit_price)
				  VALUES ($1, $2, $3, $4, $5, $6)`

	for i, item := range order.Items {
		_, err := querier.ExecContext(ctx, itemQuery,
			order.ID, i+1, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to create order item")
		}
	}
	return nil
}

// GetByID retrieves an order with its items
func (r *PostgreSQLOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresOrderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get order by id")
	}

	if order.Items, err = r.items(ctx, querier, id); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUser returns a user's orders, newest first.
func (r *PostgreSQLOrderRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresOrderColumns + ` FROM orders WHERE user_id = $1
			  ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`

	rows, err := querier.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list orders")
	}
	defer rows.Close() //nolint:errcheck

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan order")
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate orders")
	}

	for _, order := range orders {
		if order.Items, err = r.items(ctx, querier, order.ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *PostgreSQLOrderRepository) items(
	ctx context.Context,
	querier database.Querier,
	orderID uuid.UUID,
) ([]domain.OrderItem, error) {
	rows, err := querier.QueryContext(ctx,
		`SELECT product_id, product_name, quantity, unit_price FROM order_items WHERE order_id = $1 ORDER BY line_no`,
		orderID,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get order items")
	}
	defer rows.Close() //nolint:errcheck

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan order item")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate order items")
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var couponID uuid.NullUUID
	err := row.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.DiscountAmount, &o.FinalAmount, &couponID, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if couponID.Valid {
		o.UserCouponID = &couponID.UUID
	}
	return &o, nil
}
