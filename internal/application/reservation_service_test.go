package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
)

type mockReservationRepo struct {
	mock.Mock
}

func (m *mockReservationRepo) FindActive(ctx context.Context, key domain.ReferenceKey) (*domain.Reservation, error) {
	args := m.Called(ctx, key)
	res, _ := args.Get(0).(*domain.Reservation)
	return res, args.Error(1)
}

func (m *mockReservationRepo) Insert(ctx context.Context, r *domain.Reservation) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockReservationRepo) Close(ctx context.Context, id uuid.UUID, status domain.ReservationStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

func (m *mockReservationRepo) Reopen(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockReservationRepo) ListByReference(ctx context.Context, referenceID string, referenceType domain.ReferenceType) ([]domain.Reservation, error) {
	args := m.Called(ctx, referenceID, referenceType)
	out, _ := args.Get(0).([]domain.Reservation)
	return out, args.Error(1)
}

func (m *mockReservationRepo) ListActiveOlderThan(ctx context.Context, referenceType domain.ReferenceType, before time.Time, limit int) ([]domain.Reservation, error) {
	args := m.Called(ctx, referenceType, before, limit)
	out, _ := args.Get(0).([]domain.Reservation)
	return out, args.Error(1)
}

func (m *mockReservationRepo) SumActive(ctx context.Context, productID string) (int, error) {
	args := m.Called(ctx, productID)
	return args.Int(0), args.Error(1)
}

func TestReserveForReference_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "p-1", 10)

	for i := 0; i < 3; i++ {
		ok, err := f.reservations.ReserveForReference(ctx, "p-1", 4, "cart-1", domain.ReferenceCart)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	_, reserved := f.counters(t, "p-1")
	assert.Equal(t, 4, reserved)
	f.requireConsistent(t, "p-1")
}

func TestReserveForReference_InsufficientStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "p-1", 2)

	ok, err := f.reservations.ReserveForReference(ctx, "p-1", 3, "cart-1", domain.ReferenceCart)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := f.reservations.FindActive(ctx, domain.ReferenceKey{ProductID: "p-1", ReferenceID: "cart-1", ReferenceType: domain.ReferenceCart})
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestReserveThenRelease_RestoresCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "p-1", 7)

	_, err := f.reservations.ReserveForReference(ctx, "p-1", 5, "cart-1", domain.ReferenceCart)
	require.NoError(t, err)
	released, err := f.reservations.ReleaseForReference(ctx, "p-1", 5, "cart-1", domain.ReferenceCart)
	require.NoError(t, err)
	assert.True(t, released)

	onHand, reserved := f.counters(t, "p-1")
	assert.Equal(t, 7, onHand)
	assert.Equal(t, 0, reserved)

	again, err := f.reservations.ReleaseForReference(ctx, "p-1", 5, "cart-1", domain.ReferenceCart)
	require.NoError(t, err)
	assert.True(t, again, "releasing nothing is a successful no-op")
	f.requireConsistent(t, "p-1")
}

func TestReleaseForReference_ReleasesHeldQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "p-1", 10)
	_, _ = f.reservations.ReserveForReference(ctx, "p-1", 3, "cart-1", domain.ReferenceCart)
	_, _ = f.reservations.ReserveForReference(ctx, "p-1", 2, "cart-2", domain.ReferenceCart)

	_, err := f.reservations.ReleaseForReference(ctx, "p-1", 9, "cart-1", domain.ReferenceCart)
	require.NoError(t, err)

	_, reserved := f.counters(t, "p-1")
	assert.Equal(t, 2, reserved, "cart-2 keeps its units")
	f.requireConsistent(t, "p-1")
}

func TestConfirmForReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "p-1", 10)

	_, err := f.reservations.ConfirmForReference(ctx, "p-1", 2, "o-1", domain.ReferenceOrder)
	assert.True(t, errors.Is(err, domain.ErrReservationNotFound))

	_, _ = f.reservations.ReserveForReference(ctx, "p-1", 4, "o-1", domain.ReferenceOrder)

	_, err = f.reservations.ConfirmForReference(ctx, "p-1", 3, "o-1", domain.ReferenceOrder)
	assert.True(t, errors.Is(err, domain.ErrInvalidOperation))

	ok, err := f.reservations.ConfirmForReference(ctx, "p-1", 4, "o-1", domain.ReferenceOrder)
	require.NoError(t, err)
	assert.True(t, ok)

	onHand, reserved := f.counters(t, "p-1")
	assert.Equal(t, 6, onHand)
	assert.Equal(t, 0, reserved)

	list, _ := f.reservations.ListForReference(ctx, "o-1", domain.ReferenceOrder)
	require.Len(t, list, 1)
	assert.Equal(t, domain.ReservationConfirmed, list[0].Status)
	f.requireConsistent(t, "p-1")
}

func TestRevertConfirmation_RestoresReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "p-1", 10)
	_, _ = f.reservations.ReserveForReference(ctx, "p-1", 4, "o-1", domain.ReferenceOrder)
	_, err := f.reservations.ConfirmForReference(ctx, "p-1", 4, "o-1", domain.ReferenceOrder)
	require.NoError(t, err)

	require.NoError(t, f.reservations.RevertConfirmation(ctx, "p-1", 4, "o-1", domain.ReferenceOrder))

	onHand, reserved := f.counters(t, "p-1")
	assert.Equal(t, 10, onHand)
	assert.Equal(t, 4, reserved)
	f.requireConsistent(t, "p-1")
}

func TestConfirmForReference_LedgerFailureReopens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "p-1", 10)
	f.wire(&flakyLedger{StockLedger: f.ledger, product: "p-1", failConfirm: true})
	_, _ = f.reservations.ReserveForReference(ctx, "p-1", 4, "o-1", domain.ReferenceOrder)

	_, err := f.reservations.ConfirmForReference(ctx, "p-1", 4, "o-1", domain.ReferenceOrder)
	assert.True(t, errors.Is(err, errInjected))

	found, _ := f.reservations.FindActive(ctx, domain.ReferenceKey{ProductID: "p-1", ReferenceID: "o-1", ReferenceType: domain.ReferenceOrder})
	require.NotNil(t, found)
	f.requireConsistent(t, "p-1")
}

func TestReserveForReference_InsertFailureGivesUnitsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "p-1", 10)

	repo := new(mockReservationRepo)
	repo.On("FindActive", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	svc := NewReservationService(repo, f.ledger, f.cfg.OperationTimeout)

	ok, err := svc.ReserveForReference(ctx, "p-1", 3, "cart-1", domain.ReferenceCart)

	assert.Error(t, err)
	assert.False(t, ok)
	_, reserved := f.counters(t, "p-1")
	assert.Equal(t, 0, reserved)
	repo.AssertExpectations(t)
}

func TestReserveForReference_LostInsertRaceKeepsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "p-1", 10)

	repo := new(mockReservationRepo)
	repo.On("FindActive", mock.Anything, mock.Anything).Return(nil, nil)
	repo.On("Insert", mock.Anything, mock.Anything).Return(domain.ErrDuplicateReservation)
	svc := NewReservationService(repo, f.ledger, f.cfg.OperationTimeout)

	ok, err := svc.ReserveForReference(ctx, "p-1", 3, "cart-1", domain.ReferenceCart)

	require.NoError(t, err)
	assert.True(t, ok)
	_, reserved := f.counters(t, "p-1")
	assert.Equal(t, 0, reserved, "the winner's units are held by its own ledger call")
}

func TestReleaseAllForReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "p-1", 10)
	f.register(t, "p-2", 10)
	_, _ = f.reservations.ReserveForReference(ctx, "p-1", 1, "cart-1", domain.ReferenceCart)
	_, _ = f.reservations.ReserveForReference(ctx, "p-2", 2, "cart-1", domain.ReferenceCart)

	n, err := f.reservations.ReleaseAllForReference(ctx, "cart-1", domain.ReferenceCart)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, r1 := f.counters(t, "p-1")
	_, r2 := f.counters(t, "p-2")
	assert.Zero(t, r1+r2)
	f.requireConsistent(t, "p-1", "p-2")
}

func TestReservationService_RejectsBadKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.reservations.ReserveForReference(ctx, "p-1", 1, "", domain.ReferenceCart)
	assert.True(t, errors.Is(err, domain.ErrInvalidQuantity))

	_, err = f.reservations.ReserveForReference(ctx, "p-1", 1, "x", domain.ReferenceType("wishlist"))
	assert.True(t, errors.Is(err, domain.ErrInvalidQuantity))

	_, err = f.reservations.ListForReference(ctx, "x", domain.ReferenceType("wishlist"))
	assert.True(t, errors.Is(err, domain.ErrInvalidQuantity))
}
