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

// MySQLUserCouponRepository handles user coupon persistence for MySQL
type MySQLUserCouponRepository struct {
	db *sql.DB
}

// NewMySQLUserCouponRepository creates a new MySQLUserCouponRepository
func NewMySQLUserCouponRepository(db *sql.DB) *MySQLUserCouponRepository {
	return &MySQLUserCouponRepository{db: db}
}

// Create inserts a new user coupon
func (r *MySQLUserCouponRepository) Create(ctx context.Context, uc *domain.UserCoupon) error {
	querier := database.GetTx(ctx, r.db)

	ids, err := marshalUUIDs(uc.ID, uc.UserID, uc.CouponID)
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(ctx,
		`INSERT INTO user_coupons (id, user_id, coupon_id, status, expires_at, used_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ids[0], ids[1], ids[2], string(uc.Status), uc.ExpiresAt, uc.UsedAt, uc.CreatedAt, uc.UpdatedAt,
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
func (r *MySQLUserCouponRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserCoupon, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal UUID")
	}

	var uc domain.UserCoupon
	var rawID, rawUserID, rawCouponID []byte
	var status string
	var usedAt sql.NullTime
	err = querier.QueryRowContext(ctx,
		`SELECT id, user_id, coupon_id, status, expires_at, used_at, created_at, updated_at
		 FROM user_coupons WHERE id = ?`, idBytes,
	).Scan(&rawID, &rawUserID, &rawCouponID, &status, &uc.ExpiresAt, &usedAt, &uc.CreatedAt, &uc.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserCouponNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user coupon by id")
	}

	if err := unmarshalUUIDs([][]byte{rawID, rawUserID, rawCouponID}, &uc.ID, &uc.UserID, &uc.CouponID); err != nil {
		return nil, err
	}
	uc.Status = domain.UserCouponStatus(status)
	if usedAt.Valid {
		uc.UsedAt = &usedAt.Time
	}
	return &uc, nil
}

// ExistsByUserAndCoupon reports whether userID already holds a coupon of couponID.
func (r *MySQLUserCouponRepository) ExistsByUserAndCoupon(
	ctx context.Context,
	userID, couponID uuid.UUID,
) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	ids, err := marshalUUIDs(userID, couponID)
	if err != nil {
		return false, err
	}

	var exists bool
	err = querier.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_coupons WHERE user_id = ? AND coupon_id = ?)`,
		ids[0], ids[1],
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check user coupon existence")
	}
	return exists, nil
}

// MarkUsed moves an AVAILABLE, unexpired coupon owned by userID to USED in one statement.
func (r *MySQLUserCouponRepository) MarkUsed(
	ctx context.Context,
	id, userID uuid.UUID,
	now time.Time,
) (*domain.UserCoupon, error) {
	querier := database.GetTx(ctx, r.db)

	ids, err := marshalUUIDs(id, userID)
	if err != nil {
		return nil, err
	}

	result, err := querier.ExecContext(ctx,
		`UPDATE user_coupons SET status = 'USED', used_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND status = 'AVAILABLE' AND expires_at > ?`,
		now, now, ids[0], ids[1], now,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to mark user coupon as used")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get rows affected")
	}

	uc, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrCouponNotUsable
	}
	return uc, nil
}

// MarkAvailable reverts a USED coupon. It reports false when there was nothing to revert.
func (r *MySQLUserCouponRepository) MarkAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal UUID")
	}

	result, err := querier.ExecContext(ctx,
		`UPDATE user_coupons SET status = 'AVAILABLE', used_at = NULL, updated_at = NOW()
		 WHERE id = ? AND status = 'USED'`,
		idBytes,
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

func marshalUUIDs(ids ...uuid.UUID) ([][]byte, error) {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		b, err := id.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal UUID")
		}
		out[i] = b
	}
	return out, nil
}

func unmarshalUUIDs(raw [][]byte, dest ...*uuid.UUID) error {
	for i, d := range dest {
		if err := d.UnmarshalBinary(raw[i]); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal UUID")
		}
	}
	return nil
}
