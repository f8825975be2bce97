package outbox

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/memory"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event primitives.Event) error {
	return m.Called(ctx, event).Error(0)
}

func enqueue(t *testing.T, repo *memory.OutboxRepository, eventType, payload string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, repo.Insert(context.Background(), domain.OutboxMessage{
		ID:          id,
		Type:        eventType,
		PayloadJSON: payload,
	}))
	return id
}

func envelopeOfType(want string) any {
	return mock.MatchedBy(func(ev primitives.Event) bool {
		env, ok := ev.(*primitives.IntegrationEventEnvelope)
		return ok && env.Type == want
	})
}

func TestDispatchOnce_PublishesAndMarksProcessed(t *testing.T) {
	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "StockReserved", `{"orderId":"x"}`)
	enqueue(t, repo, "LowStockAlert", `{"productId":"p-1"}`)
	bus := new(mockPublisher)
	bus.On("Publish", mock.Anything, envelopeOfType("StockReserved")).Return(nil).Once()
	bus.On("Publish", mock.Anything, envelopeOfType("LowStockAlert")).Return(nil).Once()
	d := NewDispatcher(repo, bus, 3, 10)

	n, err := d.DispatchOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	pending, _ := repo.GetPendingBatch(context.Background(), 3, 10)
	assert.Empty(t, pending)
	bus.AssertExpectations(t)
}

func TestDispatchOnce_FailureBumpsRetryCount(t *testing.T) {
	repo := memory.NewOutboxRepository()
	id := enqueue(t, repo, "StockReserved", `{}`)
	bus := new(mockPublisher)
	bus.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	d := NewDispatcher(repo, bus, 2, 10)

	n, err := d.DispatchOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	pending, _ := repo.GetPendingBatch(context.Background(), 2, 10)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, 1, pending[0].RetryCount)

	_, _ = d.DispatchOnce(context.Background())
	pending, _ = repo.GetPendingBatch(context.Background(), 2, 10)
	assert.Empty(t, pending, "the message gave up after maxRetry attempts")
	bus.AssertNumberOfCalls(t, "Publish", 2)
}

func TestDispatchOnce_InvalidPayloadIsParked(t *testing.T) {
	repo := memory.NewOutboxRepository()
	enqueue(t, repo, "StockReserved", `{broken`)
	bus := new(mockPublisher)
	d := NewDispatcher(repo, bus, 5, 10)

	n, err := d.DispatchOnce(context.Background())

	require.NoError(t, err)
	assert.Zero(t, n)
	pending, _ := repo.GetPendingBatch(context.Background(), 5, 10)
	assert.Empty(t, pending)
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

type countingJob struct {
	runs atomic.Int32
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) RunOnce(ctx context.Context) (int, error) {
	j.runs.Add(1)
	return 1, nil
}

func TestScheduler_RunsUntilCancelled(t *testing.T) {
	job := &countingJob{}
	s := NewScheduler(job, 0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- s.Run(ctx) }()

	assert.Eventually(t, func() bool { return job.runs.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
