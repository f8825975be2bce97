package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// Ledger is the mutation surface of StockLedger used by the upper layers.
type Ledger interface {
	Reserve(ctx context.Context, productID string, qty int, referenceID string) (bool, error)
	Release(ctx context.Context, productID string, qty int, referenceID string) (bool, error)
	ConfirmDeduction(ctx context.Context, productID string, qty int, referenceID string) (bool, error)
	RevertDeduction(ctx context.Context, productID string, qty int, referenceID, notes string) error
	ReturnStock(ctx context.Context, productID string, qty int, referenceID, notes string) (int, error)
	RemoveStock(ctx context.Context, productID string, qty int, change domain.ChangeType, notes string, performedBy *uuid.UUID) (int, error)
}

// Reservations is the reference-bound surface of ReservationService.
type Reservations interface {
	ReserveForReference(ctx context.Context, productID string, qty int, referenceID string, referenceType domain.ReferenceType) (bool, error)
	ReleaseForReference(ctx context.Context, productID string, qty int, referenceID string, referenceType domain.ReferenceType) (bool, error)
	ConfirmForReference(ctx context.Context, productID string, qty int, referenceID string, referenceType domain.ReferenceType) (bool, error)
	RevertConfirmation(ctx context.Context, productID string, qty int, referenceID string, referenceType domain.ReferenceType) error
	ReleaseReservation(ctx context.Context, res *domain.Reservation) (bool, error)
	ReleaseAllForReference(ctx context.Context, referenceID string, referenceType domain.ReferenceType) (int, error)
	FindActive(ctx context.Context, key domain.ReferenceKey) (*domain.Reservation, error)
}

// OrderTransitioner is what the payment coordinator needs from the order state machine.
type OrderTransitioner interface {
	Transition(ctx context.Context, order *domain.Order, target domain.OrderStatus) error
}
