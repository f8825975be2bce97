package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MutateFunc receives the locked record and returns the log entry describing
// the change. A nil entry with a nil error means nothing changed and nothing is written.
type MutateFunc func(rec *StockRecord) (*InventoryLogEntry, error)

type StockRepository interface {
	// Create stores a new record; entry may be nil. ErrAlreadyExists if the product is known.
	Create(ctx context.Context, rec *StockRecord, entry *InventoryLogEntry) error
	Get(ctx context.Context, productID string) (*StockRecord, error)
	// Mutate serializes writers of one product, applies fn and persists the
	// record together with the returned entry as one unit.
	Mutate(ctx context.Context, productID string, fn MutateFunc) (*StockRecord, error)
	// History returns at most limit entries, newest first.
	History(ctx context.Context, productID string, limit int) ([]InventoryLogEntry, error)
	// Replay returns every entry of the product, oldest first.
	Replay(ctx context.Context, productID string) ([]InventoryLogEntry, error)
	// ListLowStock returns records with OnHand <= LowStockThreshold ordered by available ascending.
	ListLowStock(ctx context.Context, limit int) ([]StockRecord, error)
}

type ReservationRepository interface {
	// FindActive returns nil, nil when no active reservation exists for key.
	FindActive(ctx context.Context, key ReferenceKey) (*Reservation, error)
	// Insert fails with ErrDuplicateReservation when key already has an active row.
	Insert(ctx context.Context, r *Reservation) error
	// Close moves an ACTIVE row to status and reports whether this call did it.
	Close(ctx context.Context, id uuid.UUID, status ReservationStatus) (bool, error)
	Reopen(ctx context.Context, id uuid.UUID) error
	ListByReference(ctx context.Context, referenceID string, referenceType ReferenceType) ([]Reservation, error)
	ListActiveOlderThan(ctx context.Context, referenceType ReferenceType, before time.Time, limit int) ([]Reservation, error)
	SumActive(ctx context.Context, productID string) (int, error)
}

type OrderRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	// Insert fails with ErrAlreadyExists for a known id.
	Insert(ctx context.Context, o *Order) error
	// Update persists status and payment flags only if the stored status is still from.
	Update(ctx context.Context, o *Order, from OrderStatus) error
}

type PaymentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*Payment, error)
	Insert(ctx context.Context, p *Payment) error
	// Update persists p only if the stored status is still from.
	Update(ctx context.Context, p *Payment, from PaymentStatus) error
}

type ProductCatalog interface {
	Get(ctx context.Context, productID string) (*Product, error)
	Upsert(ctx context.Context, p *Product) error
}

type OutboxRepository interface {
	Insert(ctx context.Context, msg OutboxMessage) error
	GetPendingBatch(ctx context.Context, maxRetry, batchSize int) ([]OutboxMessage, error)
	Save(ctx context.Context, msg OutboxMessage) error
}

type OutboxMessage struct {
	ID             uuid.UUID
	Type           string
	PayloadJSON    string
	OccurredAtUtc  int64 // unix seconds
	RetryCount     int
	ProcessedAtUtc *int64
}
