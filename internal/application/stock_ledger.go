package application

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// StockLedger owns the on-hand and reserved counters. Every mutation runs as
// one StockRepository.Mutate unit and writes exactly one log entry.
type StockLedger struct {
	repo    domain.StockRepository
	outbox  OutboxWriter
	metrics *stockMetrics

	timeout          time.Duration
	defaultThreshold int
	historyDefault   int
	historyMax       int
}

func NewStockLedger(repo domain.StockRepository, outbox OutboxWriter, cfg config.Config) *StockLedger {
	return &StockLedger{
		repo:             repo,
		outbox:           outbox,
		metrics:          newStockMetrics(),
		timeout:          cfg.OperationTimeout,
		defaultThreshold: cfg.DefaultLowStockThreshold,
		historyDefault:   cfg.HistoryDefaultLimit,
		historyMax:       cfg.HistoryMaxLimit,
	}
}

type ProductRegistration struct {
	ProductID         string
	Sku               string
	InitialQuantity   int
	LowStockThreshold *int
	PerformedBy       *uuid.UUID
}

// RegisterProduct creates the stock record of a new product. A positive
// initial quantity is logged as INITIAL_STOCK.
func (l *StockLedger) RegisterProduct(ctx context.Context, reg ProductRegistration) (*domain.StockRecord, error) {
	if err := validProduct(reg.ProductID); err != nil {
		return nil, err
	}
	if reg.InitialQuantity < 0 {
		return nil, fmt.Errorf("%w: initial quantity %d", domain.ErrInvalidQuantity, reg.InitialQuantity)
	}
	threshold := l.defaultThreshold
	if reg.LowStockThreshold != nil {
		if *reg.LowStockThreshold < 0 {
			return nil, fmt.Errorf("%w: low stock threshold %d", domain.ErrInvalidQuantity, *reg.LowStockThreshold)
		}
		threshold = *reg.LowStockThreshold
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	ctx, span := startSpan(ctx, "StockLedger.RegisterProduct", attribute.String("product.id", reg.ProductID))

	rec := domain.NewStockRecord(reg.ProductID, reg.Sku, threshold)
	var entry *domain.InventoryLogEntry
	if reg.InitialQuantity > 0 {
		rec.Add(reg.InitialQuantity)
		entry = domain.NewInventoryLogEntry(rec, domain.ChangeInitialStock, reg.InitialQuantity, "initial stock")
		entry.PerformedBy = reg.PerformedBy
	}
	err := translateErr(l.repo.Create(ctx, rec, entry))
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	log.Printf("StockLedger: registered productId=%s sku=%s onHand=%d threshold=%d",
		rec.ProductID, rec.Sku, rec.OnHand, rec.LowStockThreshold)
	l.afterCommit(ctx, nil, rec, entry)
	return rec, nil
}

// AddStock increases on-hand. The first stock a product ever receives is
// logged as INITIAL_STOCK, later additions as RESTOCK.
func (l *StockLedger) AddStock(ctx context.Context, productID string, qty int, notes string, performedBy *uuid.UUID) (int, error) {
	if err := validProduct(productID); err != nil {
		return 0, err
	}
	if err := validQuantity(qty); err != nil {
		return 0, err
	}
	rec, err := l.mutate(ctx, "AddStock", productID, func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		change := domain.ChangeRestock
		if rec.Version == 0 && rec.OnHand == 0 {
			change = domain.ChangeInitialStock
		}
		rec.Add(qty)
		e := domain.NewInventoryLogEntry(rec, change, qty, notes)
		e.PerformedBy = performedBy
		return e, nil
	})
	if err != nil {
		return 0, err
	}
	return rec.OnHand, nil
}

// ReturnStock puts refunded goods back on hand with a RETURN entry.
func (l *StockLedger) ReturnStock(ctx context.Context, productID string, qty int, referenceID, notes string) (int, error) {
	if err := validProduct(productID); err != nil {
		return 0, err
	}
	if err := validQuantity(qty); err != nil {
		return 0, err
	}
	rec, err := l.mutate(ctx, "ReturnStock", productID, func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		rec.Add(qty)
		e := domain.NewInventoryLogEntry(rec, domain.ChangeReturn, qty, notes)
		e.ReferenceID = referenceID
		return e, nil
	})
	if err != nil {
		return 0, err
	}
	return rec.OnHand, nil
}

// RemoveStock writes off on-hand units as DAMAGED or STOCK_ADJUSTMENT. It
// never shrinks on-hand below what is reserved.
func (l *StockLedger) RemoveStock(ctx context.Context, productID string, qty int, change domain.ChangeType, notes string, performedBy *uuid.UUID) (int, error) {
	if err := validProduct(productID); err != nil {
		return 0, err
	}
	if err := validQuantity(qty); err != nil {
		return 0, err
	}
	if change != domain.ChangeDamaged && change != domain.ChangeStockAdjustment {
		return 0, fmt.Errorf("%w: %s cannot remove stock", domain.ErrInvalidOperation, change)
	}
	rec, err := l.mutate(ctx, "RemoveStock", productID, func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		if rec.OnHand-qty < rec.Reserved {
			return nil, fmt.Errorf("%w: removing %d from product %s leaves onHand below reserved %d",
				domain.ErrInvalidOperation, qty, productID, rec.Reserved)
		}
		rec.Add(-qty)
		e := domain.NewInventoryLogEntry(rec, change, -qty, notes)
		e.PerformedBy = performedBy
		return e, nil
	})
	if err != nil {
		return 0, err
	}
	return rec.OnHand, nil
}

// AdjustStock sets on-hand to an absolute value.
func (l *StockLedger) AdjustStock(ctx context.Context, productID string, newQty int, notes string, performedBy *uuid.UUID) (bool, error) {
	if err := validProduct(productID); err != nil {
		return false, err
	}
	if newQty < 0 {
		return false, fmt.Errorf("%w: new quantity %d", domain.ErrInvalidQuantity, newQty)
	}
	_, err := l.mutate(ctx, "AdjustStock", productID, func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		if newQty < rec.Reserved {
			return nil, fmt.Errorf("%w: cannot adjust product %s to %d below reserved %d",
				domain.ErrInvalidOperation, productID, newQty, rec.Reserved)
		}
		delta := newQty - rec.OnHand
		if delta == 0 {
			return nil, nil
		}
		rec.Add(delta)
		e := domain.NewInventoryLogEntry(rec, domain.ChangeStockAdjustment, delta, notes)
		e.PerformedBy = performedBy
		return e, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Reserve earmarks qty units. Insufficient availability is reported as false
// with a nil error and leaves the record untouched.
func (l *StockLedger) Reserve(ctx context.Context, productID string, qty int, referenceID string) (bool, error) {
	if err := validProduct(productID); err != nil {
		return false, err
	}
	if err := validQuantity(qty); err != nil {
		return false, err
	}
	ok := false
	_, err := l.mutate(ctx, "Reserve", productID, func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		if !rec.CanReserve(qty) {
			return nil, nil
		}
		ok = true
		rec.Reserve(qty)
		e := domain.NewInventoryLogEntry(rec, domain.ChangeReserved, qty, "")
		e.ReferenceID = referenceID
		return e, nil
	})
	if err != nil {
		return false, err
	}
	outcome := "reserved"
	if !ok {
		outcome = "insufficient"
	}
	add(ctx, l.metrics.reservations, attribute.String("outcome", outcome))
	return ok, nil
}

// Release gives back up to qty reserved units; releasing more than is
// reserved clamps at zero.
func (l *StockLedger) Release(ctx context.Context, productID string, qty int, referenceID string) (bool, error) {
	if err := validProduct(productID); err != nil {
		return false, err
	}
	if err := validQuantity(qty); err != nil {
		return false, err
	}
	_, err := l.mutate(ctx, "Release", productID, func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		if rec.Reserved == 0 {
			return nil, nil
		}
		released := rec.Release(qty)
		e := domain.NewInventoryLogEntry(rec, domain.ChangeReleaseReservation, -released, "")
		e.ReferenceID = referenceID
		return e, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConfirmDeduction turns qty reserved units into a permanent PURCHASE deduction.
func (l *StockLedger) ConfirmDeduction(ctx context.Context, productID string, qty int, referenceID string) (bool, error) {
	if err := validProduct(productID); err != nil {
		return false, err
	}
	if err := validQuantity(qty); err != nil {
		return false, err
	}
	_, err := l.mutate(ctx, "ConfirmDeduction", productID, func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		if qty > rec.Reserved {
			return nil, fmt.Errorf("%w: confirm %d of product %s exceeds reserved %d",
				domain.ErrInvalidOperation, qty, productID, rec.Reserved)
		}
		rec.Deduct(qty)
		e := domain.NewInventoryLogEntry(rec, domain.ChangePurchase, -qty, "")
		e.ReferenceID = referenceID
		return e, nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RevertDeduction undoes ConfirmDeduction: the units go back on hand and back
// into the reservation they were confirmed from.
func (l *StockLedger) RevertDeduction(ctx context.Context, productID string, qty int, referenceID, notes string) error {
	if err := validProduct(productID); err != nil {
		return err
	}
	if err := validQuantity(qty); err != nil {
		return err
	}
	_, err := l.mutate(ctx, "RevertDeduction", productID, func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		rec.Restore(qty)
		e := domain.NewInventoryLogEntry(rec, domain.ChangeStockAdjustment, qty, notes)
		e.ReferenceID = referenceID
		return e, nil
	})
	return err
}

func (l *StockLedger) GetStock(ctx context.Context, productID string) (*domain.StockRecord, error) {
	if err := validProduct(productID); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	rec, err := l.repo.Get(ctx, productID)
	return rec, translateErr(err)
}

// GetHistory returns the newest entries first. A non-positive limit uses the
// configured default; larger limits are capped.
func (l *StockLedger) GetHistory(ctx context.Context, productID string, limit int) ([]domain.InventoryLogEntry, error) {
	if err := validProduct(productID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = l.historyDefault
	}
	if l.historyMax > 0 && limit > l.historyMax {
		limit = l.historyMax
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	if _, err := l.repo.Get(ctx, productID); err != nil {
		return nil, translateErr(err)
	}
	entries, err := l.repo.History(ctx, productID, limit)
	return entries, translateErr(err)
}

// VerifyReplay rebuilds on-hand from the full log and compares it with the record.
func (l *StockLedger) VerifyReplay(ctx context.Context, productID string) (domain.ReplayReport, error) {
	if err := validProduct(productID); err != nil {
		return domain.ReplayReport{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	rec, err := l.repo.Get(ctx, productID)
	if err != nil {
		return domain.ReplayReport{}, translateErr(err)
	}
	entries, err := l.repo.Replay(ctx, productID)
	if err != nil {
		return domain.ReplayReport{}, translateErr(err)
	}
	report := domain.ReplayOnHand(productID, entries, rec.OnHand)
	if !report.Consistent {
		log.Printf("StockLedger: replay mismatch productId=%s replayed=%d recorded=%d entries=%d",
			productID, report.ReplayedOnHand, report.RecordedOnHand, report.Entries)
	}
	return report, nil
}

func (l *StockLedger) mutate(ctx context.Context, op, productID string, fn domain.MutateFunc) (*domain.StockRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	ctx, span := startSpan(ctx, "StockLedger."+op, attribute.String("product.id", productID))

	var before *domain.StockRecord
	var entry *domain.InventoryLogEntry
	rec, err := l.repo.Mutate(ctx, productID, func(rec *domain.StockRecord) (*domain.InventoryLogEntry, error) {
		before = rec.Clone()
		e, err := fn(rec)
		entry = e
		return e, err
	})
	err = translateErr(err)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	l.afterCommit(ctx, before, rec, entry)
	return rec, nil
}

// afterCommit publishes the committed figures. The stock change is already
// durable, so outbox failures are logged and not returned.
func (l *StockLedger) afterCommit(ctx context.Context, before, after *domain.StockRecord, entry *domain.InventoryLogEntry) {
	if entry == nil {
		return
	}
	add(ctx, l.metrics.ledgerMutations, attribute.String("change_type", string(entry.ChangeType)))

	ctx, cancel := detached(ctx, l.timeout)
	defer cancel()
	if err := l.outbox.Enqueue(ctx, domain.NewCatalogStockAdjustedEvent(after, entry.ChangeType)); err != nil {
		log.Printf("StockLedger: enqueue CatalogStockAdjusted productId=%s: %v", after.ProductID, err)
	}
	wasLow := before != nil && before.IsLowStock()
	if after.IsLowStock() && !wasLow {
		log.Printf("StockLedger: low stock productId=%s onHand=%d threshold=%d",
			after.ProductID, after.OnHand, after.LowStockThreshold)
		if err := l.outbox.Enqueue(ctx, domain.NewLowStockAlertEvent(after)); err != nil {
			log.Printf("StockLedger: enqueue LowStockAlert productId=%s: %v", after.ProductID, err)
		}
	}
}
