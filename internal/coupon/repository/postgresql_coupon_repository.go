// Package repository provides data persistence implementations for coupons and user coupons.
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

const postgresCouponColumns = `id, name, discount_type, discount_value, max_issuance_count, issued_count,
	valid_from, valid_until, active, created_at, updated_at`

// PostgreSQLCouponRepository handles coupon persistence for PostgreSQL
type PostgreSQLCouponRepository struct {
	db *sql.DB
}

// NewPostgreSQLCouponRepository creates a new PostgreSQLCouponRepository
func NewPostgreSQLCouponRepository(db *sql.DB) *PostgreSQLCouponRepository {
	return &PostgreSQLCouponRepository{db: db}
}

// Create inserts a new coupon
func (r *PostgreSQLCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO coupons (` + postgresCouponColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := querier.ExecContext(ctx, query,
		coupon.ID, coupon.Name, string(coupon.DiscountType), coupon.DiscountValue,
		coupon.MaxIssuanceCount, coupon.IssuedCount, coupon.ValidFrom, coupon.ValidUntil,
		coupon.Active, coupon.CreatedAt, coupon.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create coupon")
	}
	return nil
}

// GetByID retrieves a coupon by ID
func (r *PostgreSQLCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT ` + postgresCouponColumns + ` FROM coupons WHERE id = $1`

	coupon, err := scanCoupon(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get coupon by id")
	}
	return coupon, nil
}

// IncrementIssuedCount bumps issued_count by one only while the coupon is
// active, inside its validity window and below its maximum.
func (r *PostgreSQLCouponRepository) IncrementIssuedCount(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) (*domain.Coupon, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE coupons SET issued_count = issued_count + 1, updated_at = $2
			  WHERE id = $1 AND active AND issued_count < max_issuance_count
			  AND valid_from <= $2 AND valid_until > $2
			  RETURNING ` + postgresCouponColumns

	coupon, err := scanCoupon(querier.QueryRowContext(ctx, query, id, now))
	if err == nil {
		return coupon, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Wrap(err, "failed to increment issued count")
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.CheckIssuable(now); err != nil {
		return nil, err
	}
	return nil, domain.ErrCouponSoldOut
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCoupon(row rowScanner) (*domain.Coupon, error) {
	var c domain.Coupon
	var discountType string
	err := row.Scan(
		&c.ID, &c.Name, &discountType, &c.DiscountValue, &c.MaxIssuanceCount, &c.IssuedCount,
		&c.ValidFrom, &c.ValidUntil, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.DiscountType = domain.DiscountType(discountType)
	return &c, nil
}
