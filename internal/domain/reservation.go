package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationReleased  ReservationStatus = "RELEASED"
)

type ReferenceType string

const (
	ReferenceCart  ReferenceType = "cart"
	ReferenceOrder ReferenceType = "order"
)

func (t ReferenceType) Valid() bool {
	return t == ReferenceCart || t == ReferenceOrder
}

// ReferenceKey identifies which cart or order holds a reservation on a product.
type ReferenceKey struct {
	ProductID     string
	ReferenceID   string
	ReferenceType ReferenceType
}

func (k ReferenceKey) Validate() error {
	if k.ProductID == "" {
		return fmt.Errorf("%w: productId is required", ErrInvalidQuantity)
	}
	if k.ReferenceID == "" {
		return fmt.Errorf("%w: referenceId is required", ErrInvalidQuantity)
	}
	if !k.ReferenceType.Valid() {
		return fmt.Errorf("%w: unknown reference type %q", ErrInvalidQuantity, k.ReferenceType)
	}
	return nil
}

func (k ReferenceKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ReferenceType, k.ReferenceID, k.ProductID)
}

type Reservation struct {
	ID            uuid.UUID
	ProductID     string
	Quantity      int
	ReferenceID   string
	ReferenceType ReferenceType
	Status        ReservationStatus
	CreatedAtUtc  time.Time
	ClosedAtUtc   *time.Time
}

func NewReservation(key ReferenceKey, qty int) *Reservation {
	return &Reservation{
		ID:            uuid.New(),
		ProductID:     key.ProductID,
		Quantity:      qty,
		ReferenceID:   key.ReferenceID,
		ReferenceType: key.ReferenceType,
		Status:        ReservationActive,
		CreatedAtUtc:  time.Now().UTC(),
	}
}

func (r *Reservation) Key() ReferenceKey {
	return ReferenceKey{ProductID: r.ProductID, ReferenceID: r.ReferenceID, ReferenceType: r.ReferenceType}
}

func (r *Reservation) Active() bool {
	return r.Status == ReservationActive
}

func (r *Reservation) MarkReleased() {
	r.close(ReservationReleased)
}

func (r *Reservation) MarkConfirmed() {
	r.close(ReservationConfirmed)
}

// Reopen undoes a close when the matching ledger call failed.
func (r *Reservation) Reopen() {
	r.Status = ReservationActive
	r.ClosedAtUtc = nil
}

func (r *Reservation) close(status ReservationStatus) {
	if !r.Active() {
		return
	}
	now := time.Now().UTC()
	r.Status = status
	r.ClosedAtUtc = &now
}
