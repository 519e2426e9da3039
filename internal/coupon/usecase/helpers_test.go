package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/allisson/ordersaga/internal/coupon/domain"
	"github.com/allisson/ordersaga/internal/coupon/repository"
	"github.com/allisson/ordersaga/internal/event"
	userDomain "github.com/allisson/ordersaga/internal/user/domain"
	userRepository "github.com/allisson/ordersaga/internal/user/repository"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	coupons     *repository.MemoryCouponRepository
	userCoupons *repository.MemoryUserCouponRepository
	users       *userRepository.MemoryUserRepository
}

func newFixture() *fixture {
	return &fixture{
		coupons:     repository.NewMemoryCouponRepository(),
		userCoupons: repository.NewMemoryUserCouponRepository(),
		users:       userRepository.NewMemoryUserRepository(),
	}
}

func (f *fixture) coupon(t *testing.T, discountType domain.DiscountType, value int64, max int) *domain.Coupon {
	t.Helper()
	now := time.Now().UTC()
	c := &domain.Coupon{
		ID:               uuid.Must(uuid.NewV7()),
		Name:             "Launch",
		DiscountType:     discountType,
		DiscountValue:    value,
		MaxIssuanceCount: max,
		ValidFrom:        now.Add(-time.Hour),
		ValidUntil:       now.Add(24 * time.Hour),
		Active:           true,
	}
	require.NoError(t, f.coupons.Create(context.Background(), c))
	return c
}

func (f *fixture) user(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV7())
	require.NoError(t, f.users.Create(context.Background(), &userDomain.User{
		ID:    id,
		Name:  "Customer",
		Email: id.String() + "@example.com",
	}))
	return id
}

func (f *fixture) userCoupon(t *testing.T, couponID, userID uuid.UUID) *domain.UserCoupon {
	t.Helper()
	uc := &domain.UserCoupon{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    userID,
		CouponID:  couponID,
		Status:    domain.UserCouponStatusAvailable,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, f.userCoupons.Create(context.Background(), uc))
	return uc
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) last() event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}
