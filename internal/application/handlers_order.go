package application

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type EventHandler interface {
	Handle(ctx context.Context, ev primitives.Event) error
}

// decodeEnvelope returns false when ev is not one of types or its payload is
// unreadable. Such messages are dropped; redelivery would not fix them.
func decodeEnvelope(handler string, ev primitives.Event, out any, types ...string) (string, bool) {
	env, ok := ev.(*primitives.IntegrationEventEnvelope)
	if !ok {
		log.Printf("%s: invalid event type %T", handler, ev)
		return "", false
	}
	match := false
	for _, t := range types {
		if env.Type == t {
			match = true
			break
		}
	}
	if !match {
		return env.Type, false
	}
	if err := json.Unmarshal([]byte(env.PayloadJSON), out); err != nil {
		log.Printf("%s: failed to unmarshal %s payload: %v", handler, env.Type, err)
		return env.Type, false
	}
	return env.Type, true
}

// dropInvalid acks messages whose content can never succeed and lets the bus
// retry the rest.
func dropInvalid(handler string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrInvalidOperation),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrReservationNotFound),
		errors.Is(err, domain.ErrPartialRefundUnsupported):
		log.Printf("%s: dropping message: %v", handler, err)
		return nil
	}
	return err
}

// OrderPlacedHandler

type OrderPlacedHandler struct {
	placement *OrderPlacement
}

func NewOrderPlacedHandler(p *OrderPlacement) *OrderPlacedHandler {
	return &OrderPlacedHandler{placement: p}
}

func (h *OrderPlacedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	var payload domain.OrderPlacedPayload
	if _, ok := decodeEnvelope("OrderPlacedHandler", ev, &payload, "OrderPlacedEvent"); !ok {
		return nil
	}

	log.Printf("OrderPlacedHandler: received orderId=%s userId=%s lines=%d",
		payload.OrderID, payload.UserID, len(payload.Lines))

	items := make([]domain.OrderItem, 0, len(payload.Lines))
	for _, l := range payload.Lines {
		items = append(items, domain.OrderItem{
			ProductID:      l.ProductID,
			Quantity:       l.Quantity,
			UnitPrice:      l.UnitPrice,
			DiscountAmount: l.DiscountAmount,
		})
	}
	res, err := h.placement.PlaceOrder(ctx, PlaceOrderCommand{
		OrderID: payload.OrderID,
		UserID:  payload.UserID,
		CartID:  payload.CartID,
		Items:   items,
	})
	if err != nil {
		return dropInvalid("OrderPlacedHandler", err)
	}
	if !res.Accepted {
		log.Printf("OrderPlacedHandler: orderId=%s rejected: %s", payload.OrderID, res.Reason)
	}
	return nil
}

// OrderCancelledHandler

type OrderCancelledHandler struct {
	machine *OrderStateMachine
}

func NewOrderCancelledHandler(m *OrderStateMachine) *OrderCancelledHandler {
	return &OrderCancelledHandler{machine: m}
}

func (h *OrderCancelledHandler) Handle(ctx context.Context, ev primitives.Event) error {
	var payload domain.OrderCancelledPayload
	if _, ok := decodeEnvelope("OrderCancelledHandler", ev, &payload,
		"OrderCancelledEvent", "OrderRejectedEvent"); !ok {
		return nil
	}
	if payload.OrderID == uuid.Nil {
		log.Printf("OrderCancelledHandler: missing orderId")
		return nil
	}

	log.Printf("OrderCancelledHandler: cancelling orderId=%s reason=%q", payload.OrderID, payload.Reason)
	order, err := h.machine.TransitionByID(ctx, payload.OrderID, domain.OrderCancelled)
	if errors.Is(err, domain.ErrInvalidTransition) && order != nil && order.Status == domain.OrderCancelled {
		return nil
	}
	return dropInvalid("OrderCancelledHandler", err)
}
