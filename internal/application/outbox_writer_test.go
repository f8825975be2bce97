package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/memory"
)

func TestOutboxWriter_KeepsRaisedTimeAndRoutingKey(t *testing.T) {
	repo := memory.NewOutboxRepository()
	w := NewOutboxWriter(repo)
	ev := domain.NewOrderStatusChangedEvent(uuid.New(), domain.OrderPending, domain.OrderCancelled)
	raised := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	ev.GetMessage().OccurredOnUtc = raised

	require.NoError(t, w.Enqueue(context.Background(), ev))

	batch, err := repo.GetPendingBatch(context.Background(), 5, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "OrderStatusChanged", batch[0].Type)
	assert.Equal(t, raised.Unix(), batch[0].OccurredAtUtc)
	assert.Contains(t, batch[0].PayloadJSON, ev.OrderID.String())
}

func TestOutboxWriter_FallsBackToTypeName(t *testing.T) {
	repo := memory.NewOutboxRepository()
	ev := domain.NewOrderStatusChangedEvent(uuid.New(), domain.OrderPending, domain.OrderProcessing)
	ev.SetRoutingKey("")

	require.NoError(t, NewOutboxWriter(repo).Enqueue(context.Background(), ev))

	assert.Equal(t, []string{"OrderStatusChangedEvent"}, repo.Types())
}

func TestOutboxWriter_RejectsNilEvent(t *testing.T) {
	w := NewOutboxWriter(memory.NewOutboxRepository())
	var typed *domain.OrderStatusChangedEvent

	assert.True(t, errors.Is(w.Enqueue(context.Background(), nil), errNilEvent))
	assert.True(t, errors.Is(w.Enqueue(context.Background(), typed), errNilEvent))
}
