package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

func seed(t *testing.T, repo *StockRepository, productID string, onHand int) {
	t.Helper()
	rec := domain.NewStockRecord(productID, "SKU-"+productID, 2)
	rec.Add(onHand)
	entry := domain.NewInventoryLogEntry(rec, domain.ChangeInitialStock, onHand, "")
	require.NoError(t, repo.Create(context.Background(), rec, entry))
}

func TestStockRepository_CreateRejectsDuplicate(t *testing.T) {
	repo := NewStockRepository()
	seed(t, repo, "p-1", 5)

	err := repo.Create(context.Background(), domain.NewStockRecord("p-1", "x", 0), nil)

	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
}

func TestStockRepository_MutateAppliesAndLogs(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()
	seed(t, repo, "p-1", 5)

	rec, err := repo.Mutate(ctx, "p-1", func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		rec.Reserve(2)
		return domain.NewInventoryLogEntry(rec, domain.ChangeReserved, 2, ""), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Reserved)

	history, err := repo.History(ctx, "p-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ChangeReserved, history[0].ChangeType, "newest first")
}

func TestStockRepository_MutateDiscardsOnErrorOrInvalidRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()
	seed(t, repo, "p-1", 5)

	_, err := repo.Mutate(ctx, "p-1", func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		rec.Add(-3)
		return nil, fmt.Errorf("%w: nope", domain.ErrInvalidOperation)
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidOperation))

	_, err = repo.Mutate(ctx, "p-1", func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		rec.Reserve(9)
		return domain.NewInventoryLogEntry(rec, domain.ChangeReserved, 9, ""), nil
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidOperation))

	rec, err := repo.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 5, rec.OnHand)
	assert.Equal(t, 0, rec.Reserved)

	entries, err := repo.Replay(ctx, "p-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStockRepository_MutateNilEntryWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()
	seed(t, repo, "p-1", 5)

	rec, err := repo.Mutate(ctx, "p-1", func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		rec.Add(100)
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, rec.OnHand)

	stored, _ := repo.Get(ctx, "p-1")
	assert.Equal(t, 5, stored.OnHand)
}

func TestStockRepository_MutateUnknownProduct(t *testing.T) {
	_, err := NewStockRepository().Mutate(context.Background(), "missing",
		func(*domain.StockRecord) (*domain.InventoryLogEntry, error) { return nil, nil })

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestStockRepository_MutateHonoursCancelledContext(t *testing.T) {
	repo := NewStockRepository()
	seed(t, repo, "p-1", 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Mutate(ctx, "p-1",
		func(*domain.StockRecord) (*domain.InventoryLogEntry, error) { return nil, nil })

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStockRepository_ConcurrentMutationsSerialize(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()
	seed(t, repo, "p-1", 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Mutate(ctx, "p-1", func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
				rec.Add(1)
				return domain.NewInventoryLogEntry(rec, domain.ChangeRestock, 1, ""), nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := repo.Get(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, 50, rec.OnHand)

	entries, _ := repo.Replay(ctx, "p-1")
	assert.True(t, domain.ReplayOnHand("p-1", entries, rec.OnHand).Consistent)
}

func TestStockRepository_ListLowStockOrdersByAvailable(t *testing.T) {
	ctx := context.Background()
	repo := NewStockRepository()
	seed(t, repo, "a", 2)
	seed(t, repo, "b", 1)
	seed(t, repo, "c", 50)

	low, err := repo.ListLowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "b", low[0].ProductID)
	assert.Equal(t, "a", low[1].ProductID)

	limited, _ := repo.ListLowStock(ctx, 1)
	assert.Len(t, limited, 1)
}
