// Package repository provides data persistence implementations for balances.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/balance/domain"
	"github.com/allisson/ordersaga/internal/database"
	apperrors "github.com/allisson/ordersaga/internal/errors"
)

// PostgreSQLBalanceRepository handles balance persistence for PostgreSQL
type PostgreSQLBalanceRepository struct {
	db *sql.DB
}

// NewPostgreSQLBalanceRepository creates a new PostgreSQLBalanceRepository
func NewPostgreSQLBalanceRepository(db *sql.DB) *PostgreSQLBalanceRepository {
	return &PostgreSQLBalanceRepository{db: db}
}

// Get returns the user's balance, zero when no row exists.
func (r *PostgreSQLBalanceRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT user_id, amount, updated_at FROM balances WHERE user_id = $1`

	balance, err := scanBalance(querier.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.Balance{UserID: userID}, nil
		}
		return nil, apperrors.Wrap(err, "failed to get balance")
	}
	return balance, nil
}

// Deduct subtracts amount only when the balance covers it.
func (r *PostgreSQLBalanceRepository) Deduct(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE balances SET amount = amount - $2, updated_at = NOW()
			  WHERE user_id = $1 AND amount >= $2
			  RETURNING user_id, amount, updated_at`

	balance, err := scanBalance(querier.QueryRowContext(ctx, query, userID, amount))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInsufficientBalance
		}
		return nil, apperrors.Wrap(err, "failed to deduct balance")
	}
	return balance, nil
}

// Credit adds amount, creating the balance row on first use.
func (r *PostgreSQLBalanceRepository) Credit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error) {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO balances (user_id, amount, updated_at) VALUES ($1, $2, NOW())
			  ON CONFLICT (user_id) DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()
			  RETURNING user_id, amount, updated_at`

	balance, err := scanBalance(querier.QueryRowContext(ctx, query, userID, amount))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to credit balance")
	}
	return balance, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (*domain.Balance, error) {
	var b domain.Balance
	if err := row.Scan(&b.UserID, &b.Amount, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
