package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending:   {PaymentCompleted, PaymentFailed},
	PaymentCompleted: {PaymentRefunded},
	PaymentFailed:    nil,
	PaymentRefunded:  nil,
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Payment struct {
	ID            uuid.UUID
	OrderID       *uuid.UUID
	Status        PaymentStatus
	Amount        decimal.Decimal
	TransactionID string
	RefundReason  string
	CreatedAtUtc  time.Time
	UpdatedAtUtc  time.Time
}

func NewPayment(id uuid.UUID, orderID *uuid.UUID, amount decimal.Decimal, transactionID string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:            id,
		OrderID:       orderID,
		Status:        PaymentPending,
		Amount:        amount,
		TransactionID: transactionID,
		CreatedAtUtc:  now,
		UpdatedAtUtc:  now,
	}
}

func (p *Payment) TransitionTo(status PaymentStatus) error {
	if !CanTransitionPayment(p.Status, status) {
		return fmt.Errorf("%w: payment %s %s -> %s", ErrInvalidTransition, p.ID, p.Status, status)
	}
	p.Status = status
	p.UpdatedAtUtc = time.Now().UTC()
	return nil
}
