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

const mysqlOrderColumns = `id, user_id, total_amount, discount_amount, final_amount, user_coupon_id, status, created_at`

// MySQLOrderRepository handles order persistence for MySQL
type MySQLOrderRepository struct {
	db *sql.DB
}

// NewMySQLOrderRepository creates a new MySQLOrderRepository
func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

// Create inserts the order and its items. Callers run it inside a transaction
// so a partially written order is never visible.
func (r *MySQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	id, err := order.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}
	userID, err := order.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}
	var couponID []byte
	if order.UserCouponID != nil {
		if couponID, err = order.UserCouponID.MarshalBinary(); err != nil {
			return apperrors.Wrap(err, "failed to marshal UUID")
		}
	}

	_, err = querier.ExecContext(ctx,
		`INSERT INTO orders (id, user_id, total_amount, discount_amount, final_amount, user_coupon_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, order.TotalAmount, order.DiscountAmount, order.FinalAmount, couponID, order.Status, order.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create order")
	}

	for i, item := range order.Items {
		productID, err := item.ProductID.MarshalBinary()
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal UUID")
		}
		_, err = querier.ExecContext(ctx,
			`INSERT INTO order_items (order_id, line_no, product_id, product_name, quantity, unit_price)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, i+1, productID, item.ProductName, item.Quantity, item.UnitPrice,
		)
		if err != nil {
			return apperrors.Wrap(err, "failed to create order item")
		}
	}
	return nil
}

// GetByID retrieves an order with its items
func (r *MySQLOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	order, err := scanMySQLOrder(querier.QueryRowContext(ctx,
		`SELECT `+mysqlOrderColumns+` FROM orders WHERE id = ?`, idBytes,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get order by id")
	}

	if order.Items, err = r.items(ctx, querier, idBytes); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUser returns a user's orders, newest first.
func (r *MySQLOrderRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*domain.Order, error) {
	querier := database.GetTx(ctx, r.db)

	userBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	rows, err := querier.QueryContext(ctx,
		`SELECT `+mysqlOrderColumns+` FROM orders WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		userBytes, limit, offset,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list orders")
	}
	defer rows.Close() //nolint:errcheck

	orders := make([]*domain.Order, 0)
	for rows.Next() {
		order, err := scanMySQLOrder(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan order")
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate orders")
	}

	for _, order := range orders {
		idBytes, err := order.ID.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal UUID")
		}
		if order.Items, err = r.items(ctx, querier, idBytes); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *MySQLOrderRepository) items(
	ctx context.Context,
	querier database.Querier,
	orderID []byte,
) ([]domain.OrderItem, error) {
	rows, err := querier.QueryContext(ctx,
		`SELECT product_id, product_name, quantity, unit_price FROM order_items WHERE order_id = ? ORDER BY line_no`,
		orderID,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get order items")
	}
	defer rows.Close() //nolint:errcheck

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		var productID []byte
		if err := rows.Scan(&productID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan order item")
		}
		if err := item.ProductID.UnmarshalBinary(productID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate order items")
	}
	return items, nil
}

func scanMySQLOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var id, userID, couponID []byte
	err := row.Scan(&id, &userID, &o.TotalAmount, &o.DiscountAmount, &o.FinalAmount, &couponID, &o.Status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := o.ID.UnmarshalBinary(id); err != nil {
		return nil, err
	}
	if err := o.UserID.UnmarshalBinary(userID); err != nil {
		return nil, err
	}
	if couponID != nil {
		var c uuid.UUID
		if err := c.UnmarshalBinary(couponID); err != nil {
			return nil, err
		}
		o.UserCouponID = &c
	}
	return &o, nil
}
