package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChangeType string

const (
	ChangeInitialStock       ChangeType = "INITIAL_STOCK"
	ChangeRestock            ChangeType = "RESTOCK"
	ChangePurchase           ChangeType = "PURCHASE"
	ChangeReturn             ChangeType = "RETURN"
	ChangeStockAdjustment    ChangeType = "STOCK_ADJUSTMENT"
	ChangeDamaged            ChangeType = "DAMAGED"
	ChangeReserved           ChangeType = "RESERVED"
	ChangeReleaseReservation ChangeType = "RELEASE_RESERVATION"
)

func (c ChangeType) Valid() bool {
	switch c {
	case ChangeInitialStock, ChangeRestock, ChangePurchase, ChangeReturn,
		ChangeStockAdjustment, ChangeDamaged, ChangeReserved, ChangeReleaseReservation:
		return true
	}
	return false
}

// AffectsOnHand reports whether QuantityChanged is an on-hand delta. For the
// reservation types it is a delta of the reserved counter instead.
func (c ChangeType) AffectsOnHand() bool {
	switch c {
	case ChangeReserved, ChangeReleaseReservation:
		return false
	}
	return true
}

// InventoryLogEntry is an append-only audit row written by every ledger mutation.
type InventoryLogEntry struct {
	ID                uuid.UUID
	ProductID         string
	ChangeType        ChangeType
	QuantityChanged   int
	ResultingOnHand   int
	ResultingReserved int
	Notes             string
	ReferenceID       string
	PerformedBy       *uuid.UUID
	CreatedAtUtc      time.Time
}

func NewInventoryLogEntry(rec *StockRecord, change ChangeType, delta int, notes string) *InventoryLogEntry {
	return &InventoryLogEntry{
		ID:                uuid.New(),
		ProductID:         rec.ProductID,
		ChangeType:        change,
		QuantityChanged:   delta,
		ResultingOnHand:   rec.OnHand,
		ResultingReserved: rec.Reserved,
		Notes:             notes,
		CreatedAtUtc:      time.Now().UTC(),
	}
}

// ReplayReport is the result of rebuilding on-hand from the log.
type ReplayReport struct {
	ProductID       string
	Entries         int
	ReplayedOnHand  int
	RecordedOnHand  int
	LastEntryOnHand int
	BrokenChainAt   *uuid.UUID
	Consistent      bool
}

// ReplayOnHand folds entries (oldest first) into an on-hand figure and checks
// that each entry's ResultingOnHand follows from the previous one.
func ReplayOnHand(productID string, oldestFirst []InventoryLogEntry, recordedOnHand int) ReplayReport {
	report := ReplayReport{
		ProductID:      productID,
		Entries:        len(oldestFirst),
		RecordedOnHand: recordedOnHand,
	}
	onHand := 0
	for i := range oldestFirst {
		e := &oldestFirst[i]
		if e.ChangeType.AffectsOnHand() {
			onHand += e.QuantityChanged
		}
		if e.ResultingOnHand != onHand && report.BrokenChainAt == nil {
			id := e.ID
			report.BrokenChainAt = &id
		}
		report.LastEntryOnHand = e.ResultingOnHand
	}
	report.ReplayedOnHand = onHand
	report.Consistent = report.BrokenChainAt == nil && onHand == recordedOnHand
	return report
}
