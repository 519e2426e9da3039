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

const mysqlCouponColumns = `id, name, discount_type, discount_value, max_issuance_count, issued_count,
	valid_from, valid_until, active, created_at, updated_at`

// MySQLCouponRepository handles coupon persistence for MySQL
type MySQLCouponRepository struct {
	db *sql.DB
}

// NewMySQLCouponRepository creates a new MySQLCouponRepository
func NewMySQLCouponRepository(db *sql.DB) *MySQLCouponRepository {
	return &MySQLCouponRepository{db: db}
}

// Create inserts a new coupon
func (r *MySQLCouponRepository) Create(ctx context.Context, coupon *domain.Coupon) error {
	querier := database.GetTx(ctx, r.db)

	// Convert UUID to bytes for MySQL BINARY(16)
	id, err := coupon.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal UUID")
	}

	query := `INSERT INTO coupons (` + mysqlCouponColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(ctx, query,
		id, coupon.Name, string(coupon.DiscountType), coupon.DiscountValue,
		coupon.MaxIssuanceCount, coupon.IssuedCount, coupon.ValidFrom, coupon.ValidUntil,
		coupon.Active, coupon.CreatedAt, coupon.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create coupon")
	}
	return nil
}

// GetByID retrieves a coupon by ID
func (r *MySQLCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Coupon, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	var c domain.Coupon
	var rawID []byte
	var discountType string
	err = querier.QueryRowContext(ctx,
		`SELECT `+mysqlCouponColumns+` FROM coupons WHERE id = ?`, idBytes,
	).Scan(
		&rawID, &c.Name, &discountType, &c.DiscountValue, &c.MaxIssuanceCount, &c.IssuedCount,
		&c.ValidFrom, &c.ValidUntil, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get coupon by id")
	}

	if err := c.ID.UnmarshalBinary(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal UUID")
	}
	c.DiscountType = domain.DiscountType(discountType)
	return &c, nil
}

// IncrementIssuedCount bumps issued_count by one only while the coupon is
// active, inside its validity window and below its maximum.
func (r *MySQLCouponRepository) IncrementIssuedCount(
	ctx context.Context,
	id uuid.UUID,
	now time.Time,
) (*domain.Coupon, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	result, err := querier.ExecContext(ctx,
		`UPDATE coupons SET issued_count = issued_count + 1, updated_at = ?
		 WHERE id = ? AND active AND issued_count < max_issuance_count
		 AND valid_from <= ? AND valid_until > ?`,
		now, idBytes, now, now,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to increment issued count")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get rows affected")
	}

	coupon, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if err := coupon.CheckIssuable(now); err != nil {
			return nil, err
		}
		return nil, domain.ErrCouponSoldOut
	}
	return coupon, nil
}
