package application

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

// PaymentStatusHandler feeds payment provider outcomes into the coordinator.
// A payment seen for the first time is recorded as Pending before it moves.
type PaymentStatusHandler struct {
	coordinator *PaymentCoordinator
}

func NewPaymentStatusHandler(c *PaymentCoordinator) *PaymentStatusHandler {
	return &PaymentStatusHandler{coordinator: c}
}

func (h *PaymentStatusHandler) Handle(ctx context.Context, ev primitives.Event) error {
	var payload domain.PaymentStatusPayload
	eventType, ok := decodeEnvelope("PaymentStatusHandler", ev, &payload,
		"PaymentCompletedEvent", "PaymentFailedEvent", "PaymentRefundedEvent")
	if !ok {
		return nil
	}
	if payload.PaymentID == uuid.Nil {
		log.Printf("PaymentStatusHandler: missing paymentId")
		return nil
	}

	if _, err := h.coordinator.RecordPayment(ctx, payload.PaymentID, payload.OrderID,
		payload.Amount, payload.TransactionID); err != nil {
		return dropInvalid("PaymentStatusHandler", err)
	}

	var res PaymentResult
	var err error
	switch eventType {
	case "PaymentCompletedEvent":
		res, err = h.coordinator.MarkPaymentCompleted(ctx, payload.PaymentID)
	case "PaymentFailedEvent":
		res, err = h.coordinator.MarkPaymentFailed(ctx, payload.PaymentID)
	case "PaymentRefundedEvent":
		res, err = h.coordinator.RefundPayment(ctx, payload.PaymentID, payload.Amount, payload.Reason)
	}
	if err != nil {
		return dropInvalid("PaymentStatusHandler", err)
	}
	if res.Degraded() {
		log.Printf("PaymentStatusHandler: paymentId=%s needs reconciliation: %v", payload.PaymentID, res.OrderErr)
	}
	return nil
}
