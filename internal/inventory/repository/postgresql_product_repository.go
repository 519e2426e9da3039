// Package repository provides data persistence implementations for products.
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

const postgresProductColumns = `id, name, price, stock, created_at, updated_at`

// PostgreSQLProductRepository handles product persistence for PostgreSQL
type PostgreSQLProductRepository struct {
	db *sql.DB
}

// NewPostgreSQLProductRepository creates a new PostgreSQLProductRepository
func NewPostgreSQLProductRepository(db *sql.DB) *PostgreSQLProductRepository {
	return &PostgreSQLProductRepository{db: db}
}

// Create inserts a new product
func (r *PostgreSQLProductRepository) Create(ctx context.Context, product *domain.Product) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO products (id, name, price, stock, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := querier.ExecContext(ctx, query,
		product.ID, product.Name, product.Price, product.Stock, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create product")
	}
	return nil
}

// GetByID retrieves a product by ID
func (r *PostgreSQLProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresProductColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get product by id")
	}
	return product, nil
}

// DecreaseStock subtracts quantity in a single conditional statement and returns
// the product as it is after the update.
func (r *PostgreSQLProductRepository) DecreaseStock(
	ctx context.Context,
	id uuid.UUID,
	quantity int,
) (*domain.Product, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE products SET stock = stock - $2, updated_at = NOW()
			  WHERE id = $1 AND stock >= $2
			  RETURNING ` + postgresProductColumns

	product, err := scanProduct(querier.QueryRowContext(ctx, query, id, quantity))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.classifyMiss(ctx, querier, id)
		}
		return nil, apperrors.Wrap(err, "failed to decrease stock")
	}
	return product, nil
}

// IncreaseStock adds quantity back to the product.
func (r *PostgreSQLProductRepository) IncreaseStock(
	ctx context.Context,
	id uuid.UUID,
	quantity int,
) (*domain.Product, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE products SET stock = stock + $2, updated_at = NOW()
			  WHERE id = $1
			  RETURNING ` + postgresProductColumns

	product, err := scanProduct(querier.QueryRowContext(ctx, query, id, quantity))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, apperrors.Wrap(err, "failed to increase stock")
	}
	return product, nil
}

// classifyMiss tells a missing product apart from one without enough stock
// after a conditional update matched no row.
func (r *PostgreSQLProductRepository) classifyMiss(
	ctx context.Context,
	querier database.Querier,
	id uuid.UUID,
) error {
	var exists bool
	err := querier.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return apperrors.Wrap(err, "failed to check product existence")
	}
	if !exists {
		return domain.ErrProductNotFound
	}
	return domain.ErrInsufficientStock
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
