package application

import (
	"context"
	"errors"
	"time"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// InventoryQuery is the read side used by storefront and admin screens.
type InventoryQuery struct {
	stock        domain.StockRepository
	catalog      domain.ProductCatalog
	ledger       *StockLedger
	reservations *ReservationService
	timeout      time.Duration

	// lowStockLimit applies when a caller asks for no limit.
	lowStockLimit int
}

func NewInventoryQuery(
	stock domain.StockRepository,
	catalog domain.ProductCatalog,
	ledger *StockLedger,
	reservations *ReservationService,
	timeout time.Duration,
	lowStockLimit int,
) *InventoryQuery {
	return &InventoryQuery{
		stock:         stock,
		catalog:       catalog,
		ledger:        ledger,
		reservations:  reservations,
		timeout:       timeout,
		lowStockLimit: lowStockLimit,
	}
}

func (q *InventoryQuery) IsInStock(ctx context.Context, productID string, qty int) (bool, error) {
	if err := validQuantity(qty); err != nil {
		return false, err
	}
	rec, err := q.ledger.GetStock(ctx, productID)
	if err != nil {
		return false, err
	}
	return rec.Available() >= qty, nil
}

// GetLowStockProducts lists products at or below their threshold, least available first.
func (q *InventoryQuery) GetLowStockProducts(ctx context.Context, limit int) ([]domain.StockRecord, error) {
	if limit <= 0 {
		limit = q.lowStockLimit
	}
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	recs, err := q.stock.ListLowStock(ctx, limit)
	return recs, translateErr(err)
}

// GetProductWithStockInfo joins catalog data with stock counters. A product
// the catalog has not seen yet is returned with its id and sku only.
func (q *InventoryQuery) GetProductWithStockInfo(ctx context.Context, productID string) (*domain.ProductStockInfo, error) {
	rec, err := q.ledger.GetStock(ctx, productID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, q.timeout)
	defer cancel()
	product, err := q.catalog.Get(ctx, productID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		product = &domain.Product{ID: rec.ProductID, Sku: rec.Sku}
	case err != nil:
		return nil, translateErr(err)
	}
	return &domain.ProductStockInfo{
		Product:   *product,
		Stock:     *rec,
		Available: rec.Available(),
		InStock:   rec.Available() > 0,
		LowStock:  rec.IsLowStock(),
	}, nil
}

type ReconcileReport struct {
	Replay         domain.ReplayReport
	Reserved       int
	ActiveReserved int
	ReservationsOK bool
	CountersValid  bool
	Consistent     bool
}

// Reconcile checks the product's log replays to its on-hand figure and that
// active reservations add up to its reserved counter.
func (q *InventoryQuery) Reconcile(ctx context.Context, productID string) (*ReconcileReport, error) {
	replay, err := q.ledger.VerifyReplay(ctx, productID)
	if err != nil {
		return nil, err
	}
	rec, err := q.ledger.GetStock(ctx, productID)
	if err != nil {
		return nil, err
	}
	active, err := q.reservations.ActiveReservedTotal(ctx, productID)
	if err != nil {
		return nil, err
	}
	r := &ReconcileReport{
		Replay:         replay,
		Reserved:       rec.Reserved,
		ActiveReserved: active,
		ReservationsOK: active == rec.Reserved,
		CountersValid:  rec.Validate() == nil,
	}
	r.Consistent = replay.Consistent && r.ReservationsOK && r.CountersValid
	return r, nil
}
