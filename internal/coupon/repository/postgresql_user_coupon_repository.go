package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/coupon/domain"
	"github.com/allisson/ordersaga/internal/database"
	apperrors "github.com/allisson/ordersaga/internal/errors"
)

const postgresUserCouponColumns = `id, user_id, coupon_id, status, expires_at, used_at, created_at, updated_at`

// PostgreSQLUserCouponRepository handles user coupon persistence for PostgreSQL
type PostgreSQLUserCouponRepository struct {
	db *sql.DB
}

// NewPostgreSQLUserCouponRepository creates a new PostgreSQLUserCouponRepository
func NewPostgreSQLUserCouponRepository(db *sql.DB) *PostgreSQLUserCouponRepository {
	return &PostgreSQLUserCouponRepository{db: db}
}

// Create inserts a new user coupon
func (r *PostgreSQLUserCouponRepository) Create(ctx context.Context, uc *domain.UserCoupon) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO user_coupons (` + postgresUserCouponColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(ctx, query,
		uc.ID, uc.UserID, uc.CouponID, string(uc.Status), uc.ExpiresAt, uc.UsedAt, uc.CreatedAt, uc.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrCouponAlreadyIssued
		}
		return apperrors.Wrap(err, "failed to create user coupon")
	}
	return nil
}

// GetByID retrieves a user coupon by ID
func (r *PostgreSQLUserCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserCoupon, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresUserCouponColumns + ` FROM user_coupons WHERE id = $1`

	uc, err := scanUserCoupon(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserCouponNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user coupon by id")
	}
	return uc, nil
}

// ExistsByUserAndCoupon reports whether userID already holds a coupon of couponID.
func (r *PostgreSQLUserCouponRepository) ExistsByUserAndCoupon(
	ctx context.Context,
	userID, couponID uuid.UUID,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	var exists bool
	err := querier.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_coupons WHERE user_id = $1 AND coupon_id = $2)`,
		userID, couponID,
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check user coupon existence")
	}
	return exists, nil
}

// MarkUsed moves an AVAILABLE, unexpired coupon owned by userID to USED in one statement.
func (r *PostgreSQLUserCouponRepository) MarkUsed(
	ctx context.Context,
	id, userID uuid.UUID,
	now time.Time,
) (*domain.UserCoupon, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE user_coupons SET status = 'USED', used_at = $3, updated_at = $3
			  WHERE id = $1 AND user_id = $2 AND status = 'AVAILABLE' AND expires_at > $3
			  RETURNING ` + postgresUserCouponColumns

	uc, err := scanUserCoupon(querier.QueryRowContext(ctx, query, id, userID, now))
	if err == nil {
		return uc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Wrap(err, "failed to mark user coupon as used")
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, domain.ErrCouponNotUsable
}

// MarkAvailable reverts a USED coupon. It reports false when there was nothing to revert.
func (r *PostgreSQLUserCouponRepository) MarkAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	result, err := querier.ExecContext(ctx,
		`UPDATE user_coupons SET status = 'AVAILABLE', used_at = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'USED'`,
		id,
	)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark user coupon as available")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get rows affected")
	}
	return affected > 0, nil
}

func scanUserCoupon(row rowScanner) (*domain.UserCoupon, error) {
	var uc domain.UserCoupon
	var status string
	var usedAt sql.NullTime
	err := row.Scan(&uc.ID, &uc.UserID, &uc.CouponID, &status, &uc.ExpiresAt, &usedAt, &uc.CreatedAt, &uc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	uc.Status = domain.UserCouponStatus(status)
	if usedAt.Valid {
		uc.UsedAt = &usedAt.Time
	}
	return &uc, nil
}
