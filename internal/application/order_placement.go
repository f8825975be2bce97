package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type PlaceOrderCommand struct {
	OrderID uuid.UUID
	UserID  uuid.UUID
	CartID  string
	Items   []domain.OrderItem
}

// PlacementResult reports whether the order got all of its stock. A rejected
// placement is an expected outcome and comes with a nil error.
type PlacementResult struct {
	Accepted bool
	Order    *domain.Order
	Reason   string
}

// OrderPlacement turns a checkout into a Pending order holding one
// reservation per product under the order reference.
type OrderPlacement struct {
	orders       domain.OrderRepository
	reservations *ReservationService
	outbox       OutboxWriter
	timeout      time.Duration
}

func NewOrderPlacement(
	orders domain.OrderRepository,
	reservations *ReservationService,
	outbox OutboxWriter,
	timeout time.Duration,
) *OrderPlacement {
	return &OrderPlacement{
		orders:       orders,
		reservations: reservations,
		outbox:       outbox,
		timeout:      timeout,
	}
}

func (p *OrderPlacement) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (PlacementResult, error) {
	if cmd.OrderID == uuid.Nil {
		return PlacementResult{}, fmt.Errorf("%w: missing orderId", domain.ErrInvalidQuantity)
	}
	order := domain.NewOrder(cmd.OrderID, cmd.UserID, cmd.CartID, cmd.Items)
	if err := order.ValidateItems(); err != nil {
		p.rejected(ctx, order, err.Error())
		return PlacementResult{}, err
	}

	getCtx, cancel := context.WithTimeout(ctx, p.timeout)
	existing, err := p.orders.Get(getCtx, order.ID)
	cancel()
	if err == nil {
		log.Printf("OrderPlacement: order %s already placed, status=%s", existing.ID, existing.Status)
		return PlacementResult{Accepted: true, Order: existing}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return PlacementResult{}, translateErr(err)
	}

	comp := newCompensations(p.timeout)
	if err := p.releaseCart(ctx, cmd.CartID, comp); err != nil {
		p.rollback(ctx, order, comp)
		return PlacementResult{}, err
	}

	ref := order.ReferenceID()
	lines := order.QuantitiesByProduct()
	for _, pq := range lines {
		ok, err := p.reservations.ReserveForReference(ctx, pq.ProductID, pq.Quantity, ref, domain.ReferenceOrder)
		if err != nil {
			p.rollback(ctx, order, comp)
			return PlacementResult{}, err
		}
		if !ok {
			p.rollback(ctx, order, comp)
			reason := fmt.Sprintf("%s for product %s", domain.InsufficientStockMessage, pq.ProductID)
			p.rejected(ctx, order, reason)
			return PlacementResult{Accepted: false, Order: order, Reason: reason}, nil
		}
		comp.add("release "+pq.ProductID, func(ctx context.Context) error {
			_, err := p.reservations.ReleaseForReference(ctx, pq.ProductID, pq.Quantity, ref, domain.ReferenceOrder)
			return err
		})
	}

	insertCtx, cancel := context.WithTimeout(ctx, p.timeout)
	err = translateErr(p.orders.Insert(insertCtx, order))
	cancel()
	if errors.Is(err, domain.ErrAlreadyExists) {
		// A concurrent delivery of the same order won; the reservations are shared by key.
		log.Printf("OrderPlacement: order %s placed concurrently", order.ID)
		return PlacementResult{Accepted: true, Order: order}, nil
	}
	if err != nil {
		p.rollback(ctx, order, comp)
		return PlacementResult{}, err
	}

	evLines := make([]domain.StockReservedLine, 0, len(lines))
	for _, pq := range lines {
		evLines = append(evLines, domain.StockReservedLine{ProductID: pq.ProductID, Quantity: pq.Quantity})
	}
	p.enqueue(ctx, domain.NewStockReservedEvent(order.ID, order.UserID, evLines))
	log.Printf("OrderPlacement: order %s reserved %d products", order.ID, len(lines))
	return PlacementResult{Accepted: true, Order: order}, nil
}

// releaseCart drops the cart's own reservations so the order can take the
// same units under its reference.
func (p *OrderPlacement) releaseCart(ctx context.Context, cartID string, comp *compensations) error {
	if cartID == "" {
		return nil
	}
	held, err := p.reservations.activeForReference(ctx, cartID, domain.ReferenceCart)
	if err != nil {
		return err
	}
	for _, r := range held {
		if _, err := p.reservations.ReleaseForReference(ctx, r.ProductID, r.Quantity, cartID, domain.ReferenceCart); err != nil {
			return err
		}
		comp.add("restore cart "+r.ProductID, func(ctx context.Context) error {
			_, err := p.reservations.ReserveForReference(ctx, r.ProductID, r.Quantity, cartID, domain.ReferenceCart)
			return err
		})
	}
	return nil
}

func (p *OrderPlacement) rollback(ctx context.Context, order *domain.Order, comp *compensations) {
	if failed := comp.rollback(ctx); len(failed) > 0 {
		log.Printf("OrderPlacement: order %s left %d compensations unapplied", order.ID, len(failed))
	}
}

func (p *OrderPlacement) rejected(ctx context.Context, order *domain.Order, reason string) {
	log.Printf("OrderPlacement: order %s rejected: %s", order.ID, reason)
	p.enqueue(ctx, domain.NewStockReservationFailedEvent(order.ID, order.UserID, reason))
}

func (p *OrderPlacement) enqueue(ctx context.Context, ev primitives.Event) {
	ctx, cancel := detached(ctx, p.timeout)
	defer cancel()
	if err := p.outbox.Enqueue(ctx, ev); err != nil {
		log.Printf("OrderPlacement: enqueue %s: %v", ev.GetRoutingKey(), err)
	}
}
