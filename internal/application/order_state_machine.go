package application

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// OrderStateMachine drives orders through the fixed transition table and
// applies the stock side effect of each transition. Side effects and the
// status commit are all-or-nothing: on any failure the recorded compensations
// run newest first and the stored order keeps its previous status.
type OrderStateMachine struct {
	orders       domain.OrderRepository
	reservations Reservations
	ledger       Ledger
	outbox       OutboxWriter
	metrics      *stockMetrics
	timeout      time.Duration
}

func NewOrderStateMachine(
	orders domain.OrderRepository,
	reservations Reservations,
	ledger Ledger,
	outbox OutboxWriter,
	timeout time.Duration,
) *OrderStateMachine {
	return &OrderStateMachine{
		orders:       orders,
		reservations: reservations,
		ledger:       ledger,
		outbox:       outbox,
		metrics:      newStockMetrics(),
		timeout:      timeout,
	}
}

// TransitionByID loads the order and transitions it.
func (m *OrderStateMachine) TransitionByID(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus) (*domain.Order, error) {
	getCtx, cancel := context.WithTimeout(ctx, m.timeout)
	order, err := m.orders.Get(getCtx, orderID)
	cancel()
	if err != nil {
		return nil, translateErr(err)
	}
	if err := m.Transition(ctx, order, target); err != nil {
		return order, err
	}
	return order, nil
}

// Transition moves order to target. On success order reflects the new status;
// on failure it is left as it was.
func (m *OrderStateMachine) Transition(ctx context.Context, order *domain.Order, target domain.OrderStatus) (err error) {
	from := order.Status
	ctx, span := startSpan(ctx, "OrderStateMachine.Transition",
		attribute.String("order.id", order.ID.String()),
		attribute.String("order.from", string(from)),
		attribute.String("order.to", string(target)))
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		add(ctx, m.metrics.transitions, attribute.String("to", string(target)), attribute.String("outcome", outcome))
		endSpan(span, err)
	}()

	if !domain.CanTransition(from, target) {
		err = fmt.Errorf("%w: order %s %s -> %s", domain.ErrInvalidTransition, order.ID, from, target)
		log.Printf("OrderStateMachine: %v", err)
		return err
	}

	comp := newCompensations(m.timeout)
	switch target {
	case domain.OrderCancelled:
		err = m.releaseAll(ctx, order, comp)
	case domain.OrderCompleted:
		err = m.confirmAll(ctx, order, comp)
	case domain.OrderRefunded:
		err = m.restockAll(ctx, order, from, comp)
	}
	if err != nil {
		m.rollback(ctx, order, comp)
		return err
	}

	next := *order
	next.Status = target
	next.UpdatedAtUtc = time.Now().UTC()

	commitCtx, cancel := context.WithTimeout(ctx, m.timeout)
	err = translateErr(m.orders.Update(commitCtx, &next, from))
	cancel()
	if err != nil {
		log.Printf("OrderStateMachine: commit order %s %s -> %s failed: %v", order.ID, from, target, err)
		m.rollback(ctx, order, comp)
		return err
	}
	*order = next

	log.Printf("OrderStateMachine: order %s %s -> %s", order.ID, from, target)
	outCtx, outCancel := detached(ctx, m.timeout)
	defer outCancel()
	if oerr := m.outbox.Enqueue(outCtx, domain.NewOrderStatusChangedEvent(order.ID, from, target)); oerr != nil {
		log.Printf("OrderStateMachine: enqueue OrderStatusChanged order=%s: %v", order.ID, oerr)
	}
	return nil
}

func (m *OrderStateMachine) rollback(ctx context.Context, order *domain.Order, comp *compensations) {
	if failed := comp.rollback(ctx); len(failed) > 0 {
		log.Printf("OrderStateMachine: order %s left %d compensations unapplied", order.ID, len(failed))
	}
}

// releaseAll cancels every reservation the order holds. Releasing cannot fail
// for stock reasons, so it needs no pre-check.
func (m *OrderStateMachine) releaseAll(ctx context.Context, order *domain.Order, comp *compensations) error {
	ref := order.ReferenceID()
	for _, pq := range order.QuantitiesByProduct() {
		res, err := m.reservations.FindActive(ctx, orderKey(order, pq.ProductID))
		if err != nil {
			return err
		}
		if res == nil {
			continue
		}
		released, err := m.reservations.ReleaseReservation(ctx, res)
		if err != nil {
			return err
		}
		if !released {
			// Closed by a concurrent transition; nothing of ours to undo.
			continue
		}
		qty := res.Quantity
		comp.add("re-reserve "+pq.ProductID, func(ctx context.Context) error {
			ok, err := m.reservations.ReserveForReference(ctx, pq.ProductID, qty, ref, domain.ReferenceOrder)
			if err == nil && !ok {
				return fmt.Errorf("%w: stock of %s taken before re-reserve", domain.ErrInvalidOperation, pq.ProductID)
			}
			return err
		})
	}
	return nil
}

// confirmAll checks every product still holds a matching active reservation
// before deducting any of them.
func (m *OrderStateMachine) confirmAll(ctx context.Context, order *domain.Order, comp *compensations) error {
	lines := order.QuantitiesByProduct()
	if err := m.checkReserved(ctx, order, lines); err != nil {
		return err
	}
	ref := order.ReferenceID()
	for _, pq := range lines {
		if _, err := m.reservations.ConfirmForReference(ctx, pq.ProductID, pq.Quantity, ref, domain.ReferenceOrder); err != nil {
			return err
		}
		comp.add("revert confirm "+pq.ProductID, func(ctx context.Context) error {
			return m.reservations.RevertConfirmation(ctx, pq.ProductID, pq.Quantity, ref, domain.ReferenceOrder)
		})
	}
	return nil
}

// restockAll returns every line item to stock. A delivered order still holds
// its reservations, which are confirmed first so the return balances a purchase.
func (m *OrderStateMachine) restockAll(ctx context.Context, order *domain.Order, from domain.OrderStatus, comp *compensations) error {
	if from == domain.OrderDelivered {
		if err := m.confirmAll(ctx, order, comp); err != nil {
			return err
		}
	}
	ref := order.ReferenceID()
	for _, pq := range order.QuantitiesByProduct() {
		if _, err := m.ledger.ReturnStock(ctx, pq.ProductID, pq.Quantity, ref, "refund of order "+ref); err != nil {
			return err
		}
		comp.add("revert return "+pq.ProductID, func(ctx context.Context) error {
			_, err := m.ledger.RemoveStock(ctx, pq.ProductID, pq.Quantity, domain.ChangeStockAdjustment,
				"revert refund of order "+ref, nil)
			return err
		})
	}
	return nil
}

func (m *OrderStateMachine) checkReserved(ctx context.Context, order *domain.Order, lines []domain.ProductQuantity) error {
	for _, pq := range lines {
		key := orderKey(order, pq.ProductID)
		res, err := m.reservations.FindActive(ctx, key)
		if err != nil {
			return err
		}
		if res == nil {
			return fmt.Errorf("%w: %s", domain.ErrReservationNotFound, key)
		}
		if res.Quantity != pq.Quantity {
			return fmt.Errorf("%w: %s holds %d, order needs %d",
				domain.ErrInvalidOperation, key, res.Quantity, pq.Quantity)
		}
	}
	return nil
}

func orderKey(order *domain.Order, productID string) domain.ReferenceKey {
	return domain.ReferenceKey{
		ProductID:     productID,
		ReferenceID:   order.ReferenceID(),
		ReferenceType: domain.ReferenceOrder,
	}
}
