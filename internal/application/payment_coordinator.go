package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type PaymentOutcome string

const (
	OutcomeOK PaymentOutcome = "OK"
	// OutcomeDegraded means the payment status was committed but its order
	// could not follow. Order and stock need reconciliation.
	OutcomeDegraded PaymentOutcome = "DEGRADED"
)

type PaymentResult struct {
	Payment  *domain.Payment
	Order    *domain.Order
	Outcome  PaymentOutcome
	OrderErr error
}

func (r PaymentResult) Degraded() bool {
	return r.Outcome == OutcomeDegraded
}

// PaymentCoordinator keeps orders in step with the payment lifecycle.
type PaymentCoordinator struct {
	payments domain.PaymentRepository
	orders   domain.OrderRepository
	machine  OrderTransitioner
	outbox   OutboxWriter
	metrics  *stockMetrics
	timeout  time.Duration
}

func NewPaymentCoordinator(
	payments domain.PaymentRepository,
	orders domain.OrderRepository,
	machine OrderTransitioner,
	outbox OutboxWriter,
	timeout time.Duration,
) *PaymentCoordinator {
	return &PaymentCoordinator{
		payments: payments,
		orders:   orders,
		machine:  machine,
		outbox:   outbox,
		metrics:  newStockMetrics(),
		timeout:  timeout,
	}
}

// RecordPayment stores a Pending payment. Recording a known id returns the
// stored payment.
func (c *PaymentCoordinator) RecordPayment(ctx context.Context, id uuid.UUID, orderID *uuid.UUID, amount decimal.Decimal, transactionID string) (*domain.Payment, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("%w: missing paymentId", domain.ErrInvalidQuantity)
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: payment amount %s", domain.ErrInvalidQuantity, amount)
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	p := domain.NewPayment(id, orderID, amount, transactionID)
	err := c.payments.Insert(ctx, p)
	if errors.Is(err, domain.ErrAlreadyExists) {
		existing, gerr := c.payments.Get(ctx, id)
		return existing, translateErr(gerr)
	}
	if err != nil {
		return nil, translateErr(err)
	}
	return p, nil
}

// MarkPaymentCompleted completes the payment and walks its order to Completed,
// which confirms the reserved stock. An order that cannot follow yields a
// degraded result, not an error. Repeating the call on a completed payment
// retries the order side only.
func (c *PaymentCoordinator) MarkPaymentCompleted(ctx context.Context, paymentID uuid.UUID) (res PaymentResult, err error) {
	ctx, span := startSpan(ctx, "PaymentCoordinator.MarkPaymentCompleted", attribute.String("payment.id", paymentID.String()))
	defer func() { endSpan(span, err) }()

	p, err := c.getPayment(ctx, paymentID)
	if err != nil {
		return PaymentResult{}, err
	}
	if p.Status == domain.PaymentCompleted {
		// A retry still owes the order its transition if the first call degraded.
		return c.followOrder(ctx, p, domain.OrderCompleted), nil
	}
	if err := c.commitPayment(ctx, p, domain.PaymentCompleted); err != nil {
		return PaymentResult{}, err
	}
	log.Printf("PaymentCoordinator: payment %s completed", p.ID)
	return c.followOrder(ctx, p, domain.OrderCompleted), nil
}

// MarkPaymentFailed fails a pending payment. The order keeps its status so the
// customer can pay again; only its payment flags change.
func (c *PaymentCoordinator) MarkPaymentFailed(ctx context.Context, paymentID uuid.UUID) (res PaymentResult, err error) {
	ctx, span := startSpan(ctx, "PaymentCoordinator.MarkPaymentFailed", attribute.String("payment.id", paymentID.String()))
	defer func() { endSpan(span, err) }()

	p, err := c.getPayment(ctx, paymentID)
	if err != nil {
		return PaymentResult{}, err
	}
	if p.Status == domain.PaymentFailed {
		return PaymentResult{Payment: p, Outcome: OutcomeOK}, nil
	}
	if err := c.commitPayment(ctx, p, domain.PaymentFailed); err != nil {
		return PaymentResult{}, err
	}
	log.Printf("PaymentCoordinator: payment %s failed", p.ID)
	if p.OrderID == nil {
		return PaymentResult{Payment: p, Outcome: OutcomeOK}, nil
	}
	order, err := c.syncFlags(ctx, p)
	if err != nil {
		return c.degraded(ctx, p, order, "", err), nil
	}
	return PaymentResult{Payment: p, Order: order, Outcome: OutcomeOK}, nil
}

// RefundPayment refunds a completed payment in full and moves its order to
// Refunded, or to Cancelled when the order never got past Processing.
func (c *PaymentCoordinator) RefundPayment(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, reason string) (res PaymentResult, err error) {
	ctx, span := startSpan(ctx, "PaymentCoordinator.RefundPayment", attribute.String("payment.id", paymentID.String()))
	defer func() { endSpan(span, err) }()

	p, err := c.getPayment(ctx, paymentID)
	if err != nil {
		return PaymentResult{}, err
	}
	if p.Status == domain.PaymentRefunded {
		return c.followOrder(ctx, p, domain.OrderRefunded), nil
	}
	if !amount.IsZero() {
		switch amount.Cmp(p.Amount) {
		case 1:
			return PaymentResult{}, fmt.Errorf("%w: refund %s exceeds payment %s", domain.ErrInvalidOperation, amount, p.Amount)
		case -1:
			return PaymentResult{}, fmt.Errorf("%w: refund %s of payment %s", domain.ErrPartialRefundUnsupported, amount, p.Amount)
		}
	}
	p.RefundReason = reason
	if err := c.commitPayment(ctx, p, domain.PaymentRefunded); err != nil {
		return PaymentResult{}, err
	}
	log.Printf("PaymentCoordinator: payment %s refunded reason=%q", p.ID, reason)
	return c.followOrder(ctx, p, domain.OrderRefunded), nil
}

func (c *PaymentCoordinator) getPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	p, err := c.payments.Get(ctx, id)
	return p, translateErr(err)
}

func (c *PaymentCoordinator) commitPayment(ctx context.Context, p *domain.Payment, to domain.PaymentStatus) error {
	from := p.Status
	if err := p.TransitionTo(to); err != nil {
		log.Printf("PaymentCoordinator: %v", err)
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return translateErr(c.payments.Update(ctx, p, from))
}

// followOrder brings the payment's order to target. Payment flags are written
// first so they hold even when the transition fails.
func (c *PaymentCoordinator) followOrder(ctx context.Context, p *domain.Payment, target domain.OrderStatus) PaymentResult {
	if p.OrderID == nil {
		return PaymentResult{Payment: p, Outcome: OutcomeOK}
	}
	order, err := c.syncFlags(ctx, p)
	if err != nil {
		return c.degraded(ctx, p, order, target, err)
	}
	for _, step := range orderPath(order.Status, target) {
		if err := c.machine.Transition(ctx, order, step); err != nil {
			return c.degraded(ctx, p, order, target, err)
		}
	}
	return PaymentResult{Payment: p, Order: order, Outcome: OutcomeOK}
}

// orderPath lists the transitions that take an order from its current status
// to what the payment implies. An unreachable target is attempted directly so
// the state machine reports the illegal transition.
func orderPath(from, target domain.OrderStatus) []domain.OrderStatus {
	if from == target {
		return nil
	}
	switch target {
	case domain.OrderCompleted:
		if from == domain.OrderPending {
			return []domain.OrderStatus{domain.OrderProcessing, domain.OrderCompleted}
		}
	case domain.OrderRefunded:
		switch from {
		case domain.OrderPending, domain.OrderProcessing:
			return []domain.OrderStatus{domain.OrderCancelled}
		case domain.OrderCancelled:
			return nil
		}
	}
	return []domain.OrderStatus{target}
}

func (c *PaymentCoordinator) syncFlags(ctx context.Context, p *domain.Payment) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	order, err := c.orders.Get(ctx, *p.OrderID)
	if err != nil {
		return nil, translateErr(err)
	}
	order.PaymentStatus = p.Status
	order.IsPaid = p.Status == domain.PaymentCompleted
	if err := c.orders.Update(ctx, order, order.Status); err != nil {
		return order, translateErr(err)
	}
	return order, nil
}

func (c *PaymentCoordinator) degraded(ctx context.Context, p *domain.Payment, order *domain.Order, target domain.OrderStatus, cause error) PaymentResult {
	log.Printf("PaymentCoordinator: ERROR payment %s is %s but order %v did not reach %s: %v",
		p.ID, p.Status, p.OrderID, target, cause)
	add(ctx, c.metrics.degradedPayments, attribute.String("payment.status", string(p.Status)))

	outCtx, cancel := detached(ctx, c.timeout)
	defer cancel()
	ev := domain.NewPaymentReconciliationRequiredEvent(p, target, cause.Error())
	if err := c.outbox.Enqueue(outCtx, ev); err != nil {
		log.Printf("PaymentCoordinator: ERROR enqueue PaymentReconciliationRequired payment=%s: %v", p.ID, err)
	}
	return PaymentResult{Payment: p, Order: order, Outcome: OutcomeDegraded, OrderErr: cause}
}
