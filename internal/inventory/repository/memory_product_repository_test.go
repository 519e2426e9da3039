package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/ordersaga/internal/errors"
	"github.com/allisson/ordersaga/internal/inventory/domain"
)

func TestMemoryProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProductRepository()
	id := uuid.Must(uuid.NewV7())

	require.NoError(t, repo.Create(ctx, &domain.Product{ID: id, Name: "Cable", Price: 700, Stock: 2}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.Product{ID: id}), apperrors.ErrConflict)

	p, err := repo.DecreaseStock(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)

	_, err = repo.DecreaseStock(ctx, id, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	p, err = repo.IncreaseStock(ctx, id, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock)

	_, err = repo.GetByID(ctx, uuid.Must(uuid.NewV7()))
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = repo.DecreaseStock(ctx, uuid.Must(uuid.NewV7()), 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestMemoryProductRepository_ConcurrentDecreaseNeverOversells(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProductRepository()
	id := uuid.Must(uuid.NewV7())
	require.NoError(t, repo.Create(ctx, &domain.Product{ID: id, Name: "Cable", Price: 700, Stock: 10}))

	var wg sync.WaitGroup
	var succeeded atomic.Int32
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.DecreaseStock(ctx, id, 1); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	p, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock)
}
