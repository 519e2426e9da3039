package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ordersaga/internal/coupon/domain"
	"github.com/allisson/ordersaga/internal/database"
	apperrors "github.com/allisson/ordersaga/internal/errors"
	"github.com/allisson/ordersaga/internal/lock"
	userDomain "github.com/allisson/ordersaga/internal/user/domain"
)

// issuanceUseCase serialises issuance per coupon with a named lock and bumps the
// issued counter with a conditional update inside the same transaction that
// creates the user coupon.
type issuanceUseCase struct {
	txManager   database.TxManager
	coupons     CouponRepository
	userCoupons UserCouponRepository
	users       UserRepository
	locks       lock.Manager
	lockOpts    lock.Options
	logger      *slog.Logger
	now         func() time.Time
}

// NewIssuanceUseCase creates an IssuanceUseCase.
func NewIssuanceUseCase(
	txManager database.TxManager,
	coupons CouponRepository,
	userCoupons UserCouponRepository,
	users UserRepository,
	locks lock.Manager,
	lockOpts lock.Options,
	logger *slog.Logger,
) IssuanceUseCase {
	return &issuanceUseCase{
		txManager:   txManager,
		coupons:     coupons,
		userCoupons: userCoupons,
		users:       users,
		locks:       locks,
		lockOpts:    lockOpts,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func issueLockKey(couponID uuid.UUID) string {
	return "coupon:issue:" + couponID.String()
}

// Issue gives userID one coupon of couponID. Lock contention surfaces as an
// error wrapping apperrors.ErrBusy.
func (uc *issuanceUseCase) Issue(ctx context.Context, couponID, userID uuid.UUID) (*domain.UserCoupon, error) {
	if couponID == uuid.Nil || userID == uuid.Nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "coupon id and user id are required")
	}

	exists, err := uc.users.ExistsByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, userDomain.ErrUserNotFound
	}

	var issued *domain.UserCoupon
	err = lock.WithLock(ctx, uc.locks, issueLockKey(couponID), uc.lockOpts, func(ctx context.Context) error {
		coupon, err := uc.coupons.GetByID(ctx, couponID)
		if err != nil {
			return err
		}

		now := uc.now()
		if err := coupon.CheckIssuable(now); err != nil {
			return err
		}

		already, err := uc.userCoupons.ExistsByUserAndCoupon(ctx, userID, couponID)
		if err != nil {
			return err
		}
		if already {
			return domain.ErrCouponAlreadyIssued
		}

		return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
			if _, err := uc.coupons.IncrementIssuedCount(ctx, couponID, now); err != nil {
				return err
			}

			issued = &domain.UserCoupon{
				ID:        uuid.Must(uuid.NewV7()),
				UserID:    userID,
				CouponID:  couponID,
				Status:    domain.UserCouponStatusAvailable,
				ExpiresAt: coupon.ValidUntil,
				CreatedAt: now,
				UpdatedAt: now,
			}
			return uc.userCoupons.Create(ctx, issued)
		})
	})
	if err != nil {
		if apperrors.Is(err, apperrors.ErrBusy) {
			uc.logger.Warn("coupon issuance contended",
				slog.String("coupon_id", couponID.String()),
				slog.String("user_id", userID.String()),
			)
		}
		return nil, err
	}

	uc.logger.Info("coupon issued",
		slog.String("coupon_id", couponID.String()),
		slog.String("user_id", userID.String()),
		slog.String("user_coupon_id", issued.ID.String()),
	)
	return issued, nil
}
