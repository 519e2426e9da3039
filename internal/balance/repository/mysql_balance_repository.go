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

// MySQLBalanceRepository handles balance persistence for MySQL
type MySQLBalanceRepository struct {
	db *sql.DB
}

// NewMySQLBalanceRepository creates a new MySQLBalanceRepository
func NewMySQLBalanceRepository(db *sql.DB) *MySQLBalanceRepository {
	return &MySQLBalanceRepository{db: db}
}

// Get returns the user's balance, zero when no row exists.
func (r *MySQLBalanceRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.Balance, error) {
	return r.get(ctx, database.GetTx(ctx, r.db), userID)
}

// Deduct subtracts amount only when the balance covers it. The remaining
// balance is read back after the update.
func (r *MySQLBalanceRepository) Deduct(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	result, err := querier.ExecContext(ctx,
		`UPDATE balances SET amount = amount - ?, updated_at = NOW() WHERE user_id = ? AND amount >= ?`,
		amount, idBytes, amount,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to deduct balance")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get rows affected")
	}
	if affected == 0 {
		return nil, domain.ErrInsufficientBalance
	}
	return r.get(ctx, querier, userID)
}

// Credit adds amount, creating the balance row on first use.
func (r *MySQLBalanceRepository) Credit(ctx context.Context, userID uuid.UUID, amount int64) (*domain.Balance, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	if _, err := querier.ExecContext(ctx,
		`INSERT INTO balances (user_id, amount, updated_at) VALUES (?, ?, NOW())
		 ON DUPLICATE KEY UPDATE amount = amount + VALUES(amount), updated_at = NOW()`,
		idBytes, amount,
	); err != nil {
		return nil, apperrors.Wrap(err, "failed to credit balance")
	}
	return r.get(ctx, querier, userID)
}

func (r *MySQLBalanceRepository) get(ctx context.Context, querier database.Querier, userID uuid.UUID) (*domain.Balance, error) {
	idBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	b := domain.Balance{UserID: userID}
	err = querier.QueryRowContext(ctx,
		`SELECT amount, updated_at FROM balances WHERE user_id = ?`, idBytes,
	).Scan(&b.Amount, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &b, nil
		}
		return nil, apperrors.Wrap(err, "failed to get balance")
	}
	return &b, nil
}
