package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"github.com/shopspring/decimal"
)

// =========== Incoming event payloads ===========

// ProductCreated (catalog.events)
type ProductCreatedPayload struct {
	ProductID         uuid.UUID       `json:"productId"`
	Sku               string          `json:"sku"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	StockQuantity     int             `json:"stockQuantity"`
	LowStockThreshold *int            `json:"lowStockThreshold,omitempty"`
	IsActive          bool            `json:"isActive"`
	CreatedAtUtc      time.Time       `json:"createdAtUtc"`
}

// OrderPlaced (orders.events)
type OrderPlacedLine struct {
	ProductID      string          `json:"productId"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
}

type OrderPlacedPayload struct {
	OrderID uuid.UUID         `json:"orderId"`
	UserID  uuid.UUID         `json:"userId"`
	CartID  string            `json:"cartId"`
	Lines   []OrderPlacedLine `json:"lines"`
}

type OrderCancelledPayload struct {
	OrderID uuid.UUID `json:"orderId"`
	UserID  uuid.UUID `json:"userId"`
	Reason  string    `json:"reason"`
}

// Payment* (payments.events)
type PaymentStatusPayload struct {
	PaymentID     uuid.UUID       `json:"paymentId"`
	OrderID       *uuid.UUID      `json:"orderId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transactionId"`
	Reason        string          `json:"reason,omitempty"`
}

// =========== Outgoing events ===========

type StockReservedLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type StockReservedEvent struct {
	primitives.BaseEvent
	OrderID       uuid.UUID           `json:"orderId"`
	UserID        uuid.UUID           `json:"userId"`
	ReservedAtUtc time.Time           `json:"reservedAtUtc"`
	Lines         []StockReservedLine `json:"lines"`
}

func NewStockReservedEvent(orderID, userID uuid.UUID, lines []StockReservedLine) *StockReservedEvent {
	ev := &StockReservedEvent{
		BaseEvent:     primitives.NewBaseEvent(),
		OrderID:       orderID,
		UserID:        userID,
		ReservedAtUtc: time.Now().UTC(),
		Lines:         lines,
	}
	ev.SetRoutingKey("StockReserved")
	return ev
}

type StockReservationFailedEvent struct {
	primitives.BaseEvent
	OrderID     uuid.UUID `json:"orderId"`
	UserID      uuid.UUID `json:"userId"`
	Reason      string    `json:"reason"`
	FailedAtUtc time.Time `json:"failedAtUtc"`
}

func NewStockReservationFailedEvent(orderID, userID uuid.UUID, reason string) *StockReservationFailedEvent {
	ev := &StockReservationFailedEvent{
		BaseEvent:   primitives.NewBaseEvent(),
		OrderID:     orderID,
		UserID:      userID,
		Reason:      reason,
		FailedAtUtc: time.Now().UTC(),
	}
	ev.SetRoutingKey("StockReservationFailed")
	return ev
}

// CatalogStockAdjusted feeds catalog and search read models.
type CatalogStockAdjustedEvent struct {
	primitives.BaseEvent
	ProductID         string     `json:"productId"`
	Sku               string     `json:"sku"`
	OnHandQuantity    int        `json:"onHandQuantity"`
	ReservedQuantity  int        `json:"reservedQuantity"`
	AvailableQuantity int        `json:"availableQuantity"`
	Reason            ChangeType `json:"reason"`
	OccurredAtUtc     time.Time  `json:"occurredAtUtc"`
}

func NewCatalogStockAdjustedEvent(rec *StockRecord, reason ChangeType) *CatalogStockAdjustedEvent {
	ev := &CatalogStockAdjustedEvent{
		BaseEvent:         primitives.NewBaseEvent(),
		ProductID:         rec.ProductID,
		Sku:               rec.Sku,
		OnHandQuantity:    rec.OnHand,
		ReservedQuantity:  rec.Reserved,
		AvailableQuantity: rec.Available(),
		Reason:            reason,
		OccurredAtUtc:     time.Now().UTC(),
	}
	ev.SetRoutingKey("CatalogStockAdjusted")
	return ev
}

type LowStockAlertEvent struct {
	primitives.BaseEvent
	ProductID string    `json:"productId"`
	OnHand    int       `json:"onHand"`
	Available int       `json:"available"`
	Threshold int       `json:"threshold"`
	AlertedAt time.Time `json:"alertedAt"`
}

func NewLowStockAlertEvent(rec *StockRecord) *LowStockAlertEvent {
	ev := &LowStockAlertEvent{
		BaseEvent: primitives.NewBaseEvent(),
		ProductID: rec.ProductID,
		OnHand:    rec.OnHand,
		Available: rec.Available(),
		Threshold: rec.LowStockThreshold,
		AlertedAt: time.Now().UTC(),
	}
	ev.SetRoutingKey("LowStockAlert")
	return ev
}

type OrderStatusChangedEvent struct {
	primitives.BaseEvent
	OrderID      uuid.UUID   `json:"orderId"`
	From         OrderStatus `json:"from"`
	To           OrderStatus `json:"to"`
	ChangedAtUtc time.Time   `json:"changedAtUtc"`
}

func NewOrderStatusChangedEvent(orderID uuid.UUID, from, to OrderStatus) *OrderStatusChangedEvent {
	ev := &OrderStatusChangedEvent{
		BaseEvent:    primitives.NewBaseEvent(),
		OrderID:      orderID,
		From:         from,
		To:           to,
		ChangedAtUtc: time.Now().UTC(),
	}
	ev.SetRoutingKey("OrderStatusChanged")
	return ev
}

// PaymentReconciliationRequired is raised when a payment was recorded but the
// order could not follow it.
type PaymentReconciliationRequiredEvent struct {
	primitives.BaseEvent
	PaymentID     uuid.UUID     `json:"paymentId"`
	OrderID       *uuid.UUID    `json:"orderId,omitempty"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	TargetOrder   OrderStatus   `json:"targetOrderStatus"`
	Reason        string        `json:"reason"`
	RaisedAtUtc   time.Time     `json:"raisedAtUtc"`
}

func NewPaymentReconciliationRequiredEvent(p *Payment, target OrderStatus, reason string) *PaymentReconciliationRequiredEvent {
	ev := &PaymentReconciliationRequiredEvent{
		BaseEvent:     primitives.NewBaseEvent(),
		PaymentID:     p.ID,
		OrderID:       p.OrderID,
		PaymentStatus: p.Status,
		TargetOrder:   target,
		Reason:        reason,
		RaisedAtUtc:   time.Now().UTC(),
	}
	ev.SetRoutingKey("PaymentReconciliationRequired")
	return ev
}
