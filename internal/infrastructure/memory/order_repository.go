package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type OrderRepository struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*domain.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[uuid.UUID]*domain.Order)}
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = append([]domain.OrderItem(nil), o.Items...)
	return &c
}

func (r *OrderRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: order %s", domain.ErrNotFound, id)
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.ID]; ok {
		return fmt.Errorf("%w: order %s", domain.ErrAlreadyExists, o.ID)
	}
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order, from domain.OrderStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[o.ID]
	if !ok {
		return fmt.Errorf("%w: order %s", domain.ErrNotFound, o.ID)
	}
	if stored.Status != from {
		return fmt.Errorf("%w: order %s is %s, expected %s",
			domain.ErrConcurrentModification, o.ID, stored.Status, from)
	}
	stored.Status = o.Status
	stored.IsPaid = o.IsPaid
	stored.PaymentStatus = o.PaymentStatus
	stored.UpdatedAtUtc = time.Now().UTC()
	return nil
}

type PaymentRepository struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*domain.Payment
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{payments: make(map[uuid.UUID]*domain.Payment)}
}

func (r *PaymentRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("%w: payment %s", domain.ErrNotFound, id)
	}
	c := *p
	return &c, nil
}

func (r *PaymentRepository) Insert(ctx context.Context, p *domain.Payment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[p.ID]; ok {
		return fmt.Errorf("%w: payment %s", domain.ErrAlreadyExists, p.ID)
	}
	c := *p
	r.payments[p.ID] = &c
	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, p *domain.Payment, from domain.PaymentStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.payments[p.ID]
	if !ok {
		return fmt.Errorf("%w: payment %s", domain.ErrNotFound, p.ID)
	}
	if stored.Status != from {
		return fmt.Errorf("%w: payment %s is %s, expected %s",
			domain.ErrConcurrentModification, p.ID, stored.Status, from)
	}
	c := *p
	r.payments[p.ID] = &c
	return nil
}
