// Package memory holds single-process implementations of the domain ports.
// Writers of one product are serialized by a per-product mutex.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type StockRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.StockRecord
	logs    map[string][]domain.InventoryLogEntry
	locks   map[string]*sync.Mutex
}

func NewStockRepository() *StockRepository {
	return &StockRepository{
		records: make(map[string]*domain.StockRecord),
		logs:    make(map[string][]domain.InventoryLogEntry),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (r *StockRepository) productLock(productID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[productID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[productID] = l
	}
	return l
}

func (r *StockRepository) Create(
	ctx context.Context,
	rec *domain.StockRecord,
	entry *domain.InventoryLogEntry,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.ProductID]; ok {
		return fmt.Errorf("%w: product %s", domain.ErrAlreadyExists, rec.ProductID)
	}
	r.records[rec.ProductID] = rec.Clone()
	if entry != nil {
		r.logs[rec.ProductID] = append(r.logs[rec.ProductID], *entry)
	}
	return nil
}

func (r *StockRepository) Get(ctx context.Context, productID string) (*domain.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	return rec.Clone(), nil
}

func (r *StockRepository) Mutate(
	ctx context.Context,
	productID string,
	fn domain.MutateFunc,
) (*domain.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lock := r.productLock(productID)
	lock.Lock()
	defer lock.Unlock()

	// the caller may have waited for the lock past its deadline
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := r.Get(ctx, productID)
	if err != nil {
		return nil, err
	}

	working := current.Clone()
	entry, err := fn(working)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return current, nil
	}
	if err := working.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.records[productID] = working.Clone()
	r.logs[productID] = append(r.logs[productID], *entry)
	r.mu.Unlock()

	return working, nil
}

func (r *StockRepository) History(
	ctx context.Context,
	productID string,
	limit int,
) ([]domain.InventoryLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.records[productID]; !ok {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	entries := r.logs[productID]
	n := len(entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]domain.InventoryLogEntry, 0, n)
	for i := len(entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

func (r *StockRepository) Replay(ctx context.Context, productID string) ([]domain.InventoryLogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.records[productID]; !ok {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	out := make([]domain.InventoryLogEntry, len(r.logs[productID]))
	copy(out, r.logs[productID])
	return out, nil
}

func (r *StockRepository) ListLowStock(ctx context.Context, limit int) ([]domain.StockRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]domain.StockRecord, 0)
	for _, rec := range r.records {
		if rec.IsLowStock() {
			out = append(out, *rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Available() != out[j].Available() {
			return out[i].Available() < out[j].Available()
		}
		return out[i].ProductID < out[j].ProductID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
