package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCompleted, OrderCancelled},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {OrderCompleted, OrderRefunded},
	OrderCompleted:  {OrderRefunded},
	OrderCancelled:  nil,
	OrderRefunded:   nil,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := orderTransitions[st]; !ok {
		return "", fmt.Errorf("%w: unknown order status %q", ErrInvalidTransition, s)
	}
	return st, nil
}

func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled || s == OrderRefunded
}

// CanTransition reports whether from -> to is in the fixed transition table.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type OrderItem struct {
	ProductID      string
	Quantity       int
	UnitPrice      decimal.Decimal
	DiscountAmount decimal.Decimal
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity))).Sub(i.DiscountAmount)
}

type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	CartID        string
	Status        OrderStatus
	IsPaid        bool
	PaymentStatus PaymentStatus
	Items         []OrderItem
	CreatedAtUtc  time.Time
	UpdatedAtUtc  time.Time
}

func NewOrder(id, userID uuid.UUID, cartID string, items []OrderItem) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:            id,
		UserID:        userID,
		CartID:        cartID,
		Status:        OrderPending,
		PaymentStatus: PaymentPending,
		Items:         items,
		CreatedAtUtc:  now,
		UpdatedAtUtc:  now,
	}
}

func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (o *Order) ReferenceID() string {
	return o.ID.String()
}

// ProductQuantity is the per-product sum of an order's line items.
type ProductQuantity struct {
	ProductID string
	Quantity  int
}

// QuantitiesByProduct merges line items of the same product, since a product
// holds one reservation per order. Result is sorted by product id so callers
// lock products in a stable order.
func (o *Order) QuantitiesByProduct() []ProductQuantity {
	sums := make(map[string]int, len(o.Items))
	for _, it := range o.Items {
		sums[it.ProductID] += it.Quantity
	}
	out := make([]ProductQuantity, 0, len(sums))
	for id, q := range sums {
		out = append(out, ProductQuantity{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

func (o *Order) ValidateItems() error {
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: order %s has no items", ErrInvalidQuantity, o.ID)
	}
	for _, it := range o.Items {
		if it.ProductID == "" {
			return fmt.Errorf("%w: line item without productId", ErrInvalidQuantity)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: product %s quantity %d", ErrInvalidQuantity, it.ProductID, it.Quantity)
		}
		if it.UnitPrice.IsNegative() || it.DiscountAmount.IsNegative() {
			return fmt.Errorf("%w: product %s has negative price or discount", ErrInvalidQuantity, it.ProductID)
		}
	}
	return nil
}
