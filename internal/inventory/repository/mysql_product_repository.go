package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/database"
	apperrors "github.com/allisson/ordersaga/internal/errors"
	"github.com/allisson/ordersaga/internal/inventory/domain"
)

// MySQLProductRepository handles product persistence for MySQL
type MySQLProductRepository struct {
	db *sql.DB
}

// NewMySQLProductRepository creates a new MySQLProductRepository
func NewMySQLProductRepository(db *sql.DB) *MySQLProductRepository {
	return &MySQLProductRepository{db: db}
}

// Create inserts a new product
func (r *MySQLProductRepository) Create(ctx context.Context, product *domain.Product) error {
	querier := database.GetTx(ctx, r.db)

	// Convert UUID to bytes for MySQL BINARY(16)
	id, err := product.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `INSERT INTO products (id, name, price, stock, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query,
		id, product.Name, product.Price, product.Stock, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create product")
	}
	return nil
}

// GetByID retrieves a product by ID
func (r *MySQLProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return r.get(ctx, database.GetTx(ctx, r.db), id)
}

// DecreaseStock subtracts quantity in a single conditional statement. MySQL has
// no RETURNING, so the product is read back after the update.
func (r *MySQLProductRepository) DecreaseStock(
	ctx context.Context,
	id uuid.UUID,
	quantity int,
) (*domain.Product, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	result, err := querier.ExecContext(ctx,
		`UPDATE products SET stock = stock - ?, updated_at = NOW() WHERE id = ? AND stock >= ?`,
		quantity, idBytes, quantity,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decrease stock")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get rows affected")
	}

	product, err := r.get(ctx, querier, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrInsufficientStock
	}
	return product, nil
}

// IncreaseStock adds quantity back to the product.
func (r *MySQLProductRepository) IncreaseStock(
	ctx context.Context,
	id uuid.UUID,
	quantity int,
) (*domain.Product, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	if _, err := querier.ExecContext(ctx,
		`UPDATE products SET stock = stock + ?, updated_at = NOW() WHERE id = ?`,
		quantity, idBytes,
	); err != nil {
		return nil, apperrors.Wrap(err, "failed to increase stock")
	}

	return r.get(ctx, querier, id)
}

func (r *MySQLProductRepository) get(ctx context.Context, querier database.Querier, id uuid.UUID) (*domain.Product, error) {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	var p domain.Product
	var rawID []byte
	err = querier.QueryRowContext(ctx,
		`SELECT id, name, price, stock, created_at, updated_at FROM products WHERE id = ?`, idBytes,
	).Scan(&rawID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get product by id")
	}

	if err := p.ID.UnmarshalBinary(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	return &p, nil
}
