package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type ProductCatalog struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

func NewProductCatalog() *ProductCatalog {
	return &ProductCatalog{products: make(map[string]domain.Product)}
}

func (c *ProductCatalog) Get(ctx context.Context, productID string) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
	}
	return &p, nil
}

func (c *ProductCatalog) Upsert(ctx context.Context, p *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *p
	if stored.UpdatedAtUtc.IsZero() {
		stored.UpdatedAtUtc = time.Now().UTC()
	}
	c.products[p.ID] = stored
	return nil
}

type OutboxRepository struct {
	mu   sync.Mutex
	msgs map[uuid.UUID]domain.OutboxMessage
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{msgs: make(map[uuid.UUID]domain.OutboxMessage)}
}

func (r *OutboxRepository) Insert(ctx context.Context, msg domain.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.OccurredAtUtc == 0 {
		msg.OccurredAtUtc = time.Now().UTC().Unix()
	}
	r.msgs[msg.ID] = msg
	return nil
}

func (r *OutboxRepository) GetPendingBatch(
	ctx context.Context,
	maxRetry, batchSize int,
) ([]domain.OutboxMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.OutboxMessage
	for _, m := range r.msgs {
		if m.ProcessedAtUtc == nil && m.RetryCount < maxRetry {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OccurredAtUtc < result[j].OccurredAtUtc
	})
	if batchSize > 0 && len(result) > batchSize {
		result = result[:batchSize]
	}
	return result, nil
}

func (r *OutboxRepository) Save(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.ID == uuid.Nil {
		return errors.New("outbox message id is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.msgs[msg.ID]; !ok {
		return fmt.Errorf("%w: outbox message %s", domain.ErrNotFound, msg.ID)
	}
	r.msgs[msg.ID] = msg
	return nil
}

// Types lists the event types currently stored, oldest first.
func (r *OutboxRepository) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := make([]domain.OutboxMessage, 0, len(r.msgs))
	for _, m := range r.msgs {
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].OccurredAtUtc < msgs[j].OccurredAtUtc })
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Type)
	}
	return out
}
