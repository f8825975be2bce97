package domain

import (
	"fmt"
	"time"
)

// StockRecord holds the authoritative counters for one product. It is only
// mutated through StockRepository.Mutate.
type StockRecord struct {
	ProductID         string
	Sku               string
	OnHand            int
	Reserved          int
	LowStockThreshold int
	Version           int64
	UpdatedAtUtc      time.Time
}

func NewStockRecord(productID, sku string, lowStockThreshold int) *StockRecord {
	return &StockRecord{
		ProductID:         productID,
		Sku:               sku,
		OnHand:            0,
		Reserved:          0,
		LowStockThreshold: lowStockThreshold,
		UpdatedAtUtc:      time.Now().UTC(),
	}
}

func (s *StockRecord) Available() int {
	return s.OnHand - s.Reserved
}

func (s *StockRecord) IsLowStock() bool {
	return s.OnHand <= s.LowStockThreshold
}

func (s *StockRecord) CanReserve(qty int) bool {
	return qty > 0 && s.Available() >= qty
}

// Validate checks 0 <= Reserved <= OnHand.
func (s *StockRecord) Validate() error {
	if s.OnHand < 0 || s.Reserved < 0 || s.Reserved > s.OnHand {
		return fmt.Errorf("%w: product %s onHand=%d reserved=%d",
			ErrInvalidOperation, s.ProductID, s.OnHand, s.Reserved)
	}
	return nil
}

func (s *StockRecord) Reserve(qty int) {
	s.Reserved += qty
	s.touch()
}

// Release returns the quantity actually released, clamped at the current reservation.
func (s *StockRecord) Release(qty int) int {
	if qty > s.Reserved {
		qty = s.Reserved
	}
	s.Reserved -= qty
	s.touch()
	return qty
}

func (s *StockRecord) Deduct(qty int) {
	s.Reserved -= qty
	s.OnHand -= qty
	s.touch()
}

// Restore undoes Deduct.
func (s *StockRecord) Restore(qty int) {
	s.Reserved += qty
	s.OnHand += qty
	s.touch()
}

// Add changes on-hand by a signed delta.
func (s *StockRecord) Add(qty int) {
	s.OnHand += qty
	s.touch()
}

func (s *StockRecord) Clone() *StockRecord {
	c := *s
	return &c
}

func (s *StockRecord) touch() {
	s.Version++
	s.UpdatedAtUtc = time.Now().UTC()
}
